package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atharvad999/adcreative/internal/http/handlers"
	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/metrics"
	"github.com/atharvad999/adcreative/internal/middleware"
)

// Options carries the cross-cutting dependencies of the router.
type Options struct {
	Logger         infra.Logger
	Metrics        *metrics.Collector
	AllowedOrigins []string
	DefaultLocale  string
	CountryLookup  middleware.CountryLookup
}

// Route is one entry in the public API surface.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Routes lists the API endpoints served by app.
func Routes(app *handlers.App) []Route {
	return []Route{
		{http.MethodGet, "/healthz", app.Health},
		{http.MethodGet, "/openapi.json", app.OpenAPIJSON},
		{http.MethodGet, "/docs", app.OpenAPIDocs},
		{http.MethodGet, "/images", app.BrowseImages},
		{http.MethodGet, "/categories", app.Categories},
		{http.MethodGet, "/inspiration/{category}", app.Inspiration},
		{http.MethodGet, "/collections", app.Collections},
		{http.MethodGet, "/collections/{id}/images", app.CollectionImages},
		{http.MethodPost, "/prompts/reconstruct", app.ReconstructPrompt},
		{http.MethodPost, "/generate", app.Generate},
	}
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger, opts.Metrics),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	for _, rt := range Routes(app) {
		r.Method(rt.Method, rt.Pattern, rt.Handler)
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.NotFound(app.NotFound)
	r.MethodNotAllowed(app.MethodNotAllowed)
	return r
}
