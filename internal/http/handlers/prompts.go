package handlers

import (
	"net/http"

	"github.com/atharvad999/adcreative/internal/service"
)

// ReconstructPrompt handles POST /prompts/reconstruct.
func (a *App) ReconstructPrompt(w http.ResponseWriter, r *http.Request) {
	var req service.ReconstructRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	prompt, err := a.Service.ReconstructPrompt(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, prompt)
}
