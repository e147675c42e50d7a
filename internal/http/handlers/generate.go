package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/middleware"
	"github.com/atharvad999/adcreative/internal/service"
	"github.com/atharvad999/adcreative/pkg/zip"
)

const (
	// PromptSourceHeader tells clients whether the prompt used for
	// generation was supplied or reconstructed from the reference image.
	PromptSourceHeader = middleware.PromptSourceHeader
	zipFilename        = "creatives.zip"
)

// Generate handles POST /generate. The response is the list of generated
// assets, or a zip archive when ?download=zip is set.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerationRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	download := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("download")))
	if download != "" && download != "zip" {
		a.writeError(w, r, domain.Validationf("download must be zip"))
		return
	}

	result, err := a.Service.Generate(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	source := "supplied"
	if result.Reconstructed != nil {
		source = "reconstructed"
	}
	w.Header().Set(PromptSourceHeader, source)

	if download == "zip" {
		a.writeArchive(w, r, result.Assets)
		return
	}
	assets := result.Assets
	if assets == nil {
		assets = []domain.GeneratedAsset{}
	}
	a.json(w, http.StatusOK, assets)
}

func (a *App) writeArchive(w http.ResponseWriter, r *http.Request, assets []domain.GeneratedAsset) {
	body, err := zip.ArchiveAssets(service.ArchiveEntries(assets))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", zipFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
