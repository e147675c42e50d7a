package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/middleware"
	"github.com/atharvad999/adcreative/internal/service"
)

const maxBodyBytes = 1 << 20

// Service is the orchestration surface the handlers call.
type Service interface {
	Browse(ctx context.Context, req service.BrowseRequest) ([]domain.ImageDescriptor, error)
	Categories() []string
	Inspiration(ctx context.Context, category string, limit int, locale, country string) ([]domain.ImageDescriptor, error)
	Collections(ctx context.Context, perPage int) ([]domain.Collection, error)
	CollectionImages(ctx context.Context, id string, page, perPage int) ([]domain.ImageDescriptor, error)
	ReconstructPrompt(ctx context.Context, req service.ReconstructRequest) (domain.ReconstructedPrompt, error)
	Generate(ctx context.Context, req domain.GenerationRequest) (service.GenerateResult, error)
}

type App struct {
	Service Service
	Logger  *infra.Logger
}

func NewApp(svc Service, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &App{Service: svc, Logger: logger}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

// Routing failures never reach the service, so their kinds sit outside the
// domain taxonomy.
const (
	KindNotFound         domain.Kind = "not_found"
	KindMethodNotAllowed domain.Kind = "method_not_allowed"
)

// NotFound renders the error envelope for unmatched routes.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusNotFound, errorBody{Error: errorDetail{Kind: KindNotFound, Message: "route not found"}})
}

// MethodNotAllowed renders the error envelope for a known path hit with the
// wrong method.
func (a *App) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusMethodNotAllowed, errorBody{Error: errorDetail{Kind: KindMethodNotAllowed, Message: r.Method + " is not allowed on " + r.URL.Path}})
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error kind to the HTTP status returned to clients.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUpstreamRejected, domain.KindUpstreamContractViolation:
		return http.StatusBadGateway
	case domain.KindUpstreamUnavailable:
		return http.StatusGatewayTimeout
	case domain.KindContentPolicyViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the uniform error envelope. Internal failures are
// logged and their message replaced.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)
	message := err.Error()
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
		if de.Upstream != "" {
			message = de.Upstream + ": " + message
		}
	}
	if status >= 500 {
		a.logger(r).Error().Err(err).Str("kind", string(kind)).Msg("request failed")
	}
	if kind == domain.KindInternal || kind == domain.KindConfiguration {
		kind = domain.KindInternal
		message = "internal error"
	}
	a.json(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

// logger prefers the request-scoped logger installed by middleware.
func (a *App) logger(r *http.Request) *infra.Logger {
	if l := middleware.LoggerFromContext(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return a.Logger
}

func (a *App) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validationf("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.Validationf("request body too large")
		}
		return domain.Validationf("invalid JSON body: %v", err)
	}
	return nil
}

// queryInt reads an integer query parameter, returning fallback when absent.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Validationf("%s must be an integer", name)
	}
	return v, nil
}
