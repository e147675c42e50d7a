package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/middleware"
	"github.com/atharvad999/adcreative/internal/service"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
)

// BrowseImages handles GET /images?query&page&perPage[&sort].
func (a *App) BrowseImages(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	perPage, err := queryInt(r, "perPage", defaultPerPage)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	images, err := a.Service.Browse(ctx, service.BrowseRequest{
		Query:   r.URL.Query().Get("query"),
		Page:    page,
		PerPage: perPage,
		Sort:    strings.TrimSpace(r.URL.Query().Get("sort")),
		Locale:  middleware.LocaleFromContext(ctx),
		Country: middleware.CountryFromContext(ctx),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, nonNil(images))
}

func (a *App) Categories(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string][]string{"categories": a.Service.Categories()})
}

// Inspiration handles GET /inspiration/{category}?limit.
func (a *App) Inspiration(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	images, err := a.Service.Inspiration(ctx, chi.URLParam(r, "category"), limit,
		middleware.LocaleFromContext(ctx), middleware.CountryFromContext(ctx))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, nonNil(images))
}

func (a *App) Collections(w http.ResponseWriter, r *http.Request) {
	perPage, err := queryInt(r, "perPage", defaultPerPage)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	collections, err := a.Service.Collections(r.Context(), perPage)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if collections == nil {
		collections = []domain.Collection{}
	}
	a.json(w, http.StatusOK, collections)
}

func (a *App) CollectionImages(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	perPage, err := queryInt(r, "perPage", defaultPerPage)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	images, err := a.Service.CollectionImages(r.Context(), chi.URLParam(r, "id"), page, perPage)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, nonNil(images))
}

func nonNil(images []domain.ImageDescriptor) []domain.ImageDescriptor {
	if images == nil {
		return []domain.ImageDescriptor{}
	}
	return images
}
