// Package service composes the stock search, prompt reconstruction and image
// generation clients into the operations the HTTP surface and CLI expose.
package service

import (
	"context"
	"strings"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/providers/image"
	"github.com/atharvad999/adcreative/internal/providers/prompt"
	"github.com/atharvad999/adcreative/internal/providers/shutterstock"
)

const (
	// DefaultInspirationLimit is the page size for category browsing.
	DefaultInspirationLimit = 20
	inspirationSort         = "popular"
)

var categories = []string{
	"travel", "technology", "beauty", "fitness",
	"finance", "food", "fashion", "real estate",
}

// Searcher is the stock image client surface the service depends on.
type Searcher interface {
	Search(ctx context.Context, req shutterstock.SearchRequest) ([]domain.ImageDescriptor, error)
	FeaturedCollections(ctx context.Context, perPage int) ([]domain.Collection, error)
	CollectionImages(ctx context.Context, id string, page, perPage int) ([]domain.ImageDescriptor, error)
}

// requestValidator is implemented by generators that can reject a request
// without calling the upstream.
type requestValidator interface {
	Validate(req domain.GenerationRequest) error
}

// Service holds the upstream clients. It keeps no per-request state.
type Service struct {
	search        Searcher
	generator     image.Generator
	reconstructor prompt.Reconstructor
	logger        *infra.Logger
}

// New wires a Service. All clients are required.
func New(search Searcher, generator image.Generator, reconstructor prompt.Reconstructor, logger *infra.Logger) (*Service, error) {
	if search == nil || generator == nil || reconstructor == nil {
		return nil, domain.Configurationf("service requires search, generation and reconstruction clients")
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Service{search: search, generator: generator, reconstructor: reconstructor, logger: logger}, nil
}

// BrowseRequest is a stock search plus optional locale hints.
type BrowseRequest struct {
	Query   string
	Page    int
	PerPage int
	Sort    string
	Locale  string
	Country string
}

// Browse searches stock imagery.
func (s *Service) Browse(ctx context.Context, req BrowseRequest) ([]domain.ImageDescriptor, error) {
	return s.search.Search(ctx, shutterstock.SearchRequest{
		Query:    req.Query,
		Page:     req.Page,
		PerPage:  req.PerPage,
		Sort:     req.Sort,
		Language: SearchLanguage(req.Locale),
		Region:   SearchRegion(req.Country),
	})
}

// Categories lists the ad categories offered for inspiration browsing.
func (s *Service) Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// Inspiration returns popular stock images for a category.
func (s *Service) Inspiration(ctx context.Context, category string, limit int, locale, country string) ([]domain.ImageDescriptor, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, domain.Validationf("category is required")
	}
	if limit == 0 {
		limit = DefaultInspirationLimit
	}
	return s.Browse(ctx, BrowseRequest{
		Query:   category,
		Page:    1,
		PerPage: limit,
		Sort:    inspirationSort,
		Locale:  locale,
		Country: country,
	})
}

// Collections lists featured stock collections.
func (s *Service) Collections(ctx context.Context, perPage int) ([]domain.Collection, error) {
	return s.search.FeaturedCollections(ctx, perPage)
}

// CollectionImages lists the images in one collection.
func (s *Service) CollectionImages(ctx context.Context, id string, page, perPage int) ([]domain.ImageDescriptor, error) {
	return s.search.CollectionImages(ctx, id, page, perPage)
}

// ReconstructRequest asks for the prompt behind an existing image.
type ReconstructRequest struct {
	ImageURL string `json:"imageUrl"`
	AdText   string `json:"adText,omitempty"`
}

// ReconstructPrompt recovers a prompt from an image.
func (s *Service) ReconstructPrompt(ctx context.Context, req ReconstructRequest) (domain.ReconstructedPrompt, error) {
	return s.reconstructor.ReconstructWithText(ctx, req.ImageURL, req.AdText)
}

// GenerateResult is the output of Generate. Reconstructed is set when the
// prompt was recovered from the reference image.
type GenerateResult struct {
	Prompt        string                      `json:"prompt"`
	Reconstructed *domain.ReconstructedPrompt `json:"reconstructedPrompt,omitempty"`
	Assets        []domain.GeneratedAsset     `json:"assets"`
}

// Generate produces ad creatives. With only reference images the prompt is
// reconstructed from the first one and the generation call waits for it.
func (s *Service) Generate(ctx context.Context, req domain.GenerationRequest) (GenerateResult, error) {
	req.Normalize()
	if req.Prompt == "" && !req.HasReference() {
		return GenerateResult{}, domain.Validationf("must supply prompt or reference image")
	}

	var reconstructed *domain.ReconstructedPrompt
	if req.Prompt == "" {
		if v, ok := s.generator.(requestValidator); ok {
			draft := req
			draft.Prompt = "reference"
			if err := v.Validate(draft); err != nil {
				return GenerateResult{}, err
			}
		}
		rp, err := s.reconstructor.ReconstructWithText(ctx, req.References()[0], req.AdText)
		if err != nil {
			return GenerateResult{}, err
		}
		s.logger.Debug().Int("prompt_len", len(rp.Text)).Msg("service: prompt reconstructed from reference")
		req.Prompt = rp.Text
		reconstructed = &rp
	}

	assets, err := s.generator.Generate(ctx, req)
	if err != nil {
		return GenerateResult{}, err
	}
	return GenerateResult{Prompt: req.Prompt, Reconstructed: reconstructed, Assets: assets}, nil
}
