// Package image turns generation requests into calls against the image
// generation upstream and normalizes the results into domain assets.
package image

import (
	"context"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/providers/openai"
)

// Generator produces exactly req.Count assets or fails.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.GeneratedAsset, error)
}

type imagesClient interface {
	GenerateImages(ctx context.Context, req openai.ImagesRequest) (*openai.ImagesResponse, error)
	EditImages(ctx context.Context, req openai.EditRequest) (*openai.ImagesResponse, error)
}

var _ imagesClient = (*openai.Client)(nil)
