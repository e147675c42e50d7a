package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/metrics"
	"github.com/atharvad999/adcreative/internal/providers/openai"
	"github.com/atharvad999/adcreative/internal/providers/upstream"
)

// OpenAIOptions configures the OpenAI-backed generator.
type OpenAIOptions struct {
	Model string
	// FetchClient downloads reference images. Defaults to a plain client.
	FetchClient *http.Client
	FetchPolicy upstream.Policy
	Logger      *infra.Logger
	Metrics     *metrics.Collector
}

// OpenAIGenerator generates ad creatives with an OpenAI image model. Requests
// with a reference image become edits, all others are plain generations.
type OpenAIGenerator struct {
	client  imagesClient
	profile Profile
	fetcher *referenceFetcher
	logger  *infra.Logger
}

// NewOpenAIGenerator wires the generator to client using the model profile
// named in opts.
func NewOpenAIGenerator(client imagesClient, opts OpenAIOptions) (*OpenAIGenerator, error) {
	if client == nil {
		return nil, domain.Configurationf("image generator requires an openai client")
	}
	model := opts.Model
	if strings.TrimSpace(model) == "" {
		model = "gpt-image-1"
	}
	profile, ok := LookupProfile(model)
	if !ok {
		return nil, domain.Configurationf("OPENAI_IMAGE_MODEL %q is not supported", model)
	}
	fetchClient := opts.FetchClient
	if fetchClient == nil {
		fetchClient = &http.Client{}
	}
	fetchPolicy := opts.FetchPolicy
	if fetchPolicy.Timeout <= 0 {
		fetchPolicy = upstream.DefaultPolicy(10 * time.Second)
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &OpenAIGenerator{
		client:  client,
		profile: profile,
		fetcher: &referenceFetcher{
			client: fetchClient,
			caller: upstream.NewCaller("reference", logger, opts.Metrics),
			policy: fetchPolicy,
		},
		logger: logger,
	}, nil
}

// Validate reports whether req would be accepted by the active profile.
func (g *OpenAIGenerator) Validate(req domain.GenerationRequest) error {
	req.Normalize()
	_, err := g.profile.validate(req)
	return err
}

// Generate validates req, performs exactly one generation or edit call and
// returns req.Count assets.
func (g *OpenAIGenerator) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.GeneratedAsset, error) {
	req.Normalize()
	dims, err := g.profile.validate(req)
	if err != nil {
		return nil, err
	}
	prompt := withAdText(req.Prompt, req.AdText)

	var resp *openai.ImagesResponse
	if req.HasReference() {
		edit, err := g.buildEdit(ctx, req, dims, prompt)
		if err != nil {
			return nil, err
		}
		resp, err = g.client.EditImages(ctx, edit)
		if err != nil {
			return nil, err
		}
	} else {
		resp, err = g.client.GenerateImages(ctx, openai.ImagesRequest{
			Model:          g.profile.Model,
			Prompt:         prompt,
			N:              req.Count,
			Size:           dims.Size,
			Quality:        dims.Quality,
			ResponseFormat: g.profile.ResponseFormat,
		})
		if err != nil {
			return nil, err
		}
	}

	assets, err := toAssets(resp, req.Count, dims)
	if err != nil {
		g.logger.Error().Err(err).Str("model", g.profile.Model).Msg("image: unusable generation response")
		return nil, err
	}
	return assets, nil
}

func (g *OpenAIGenerator) buildEdit(ctx context.Context, req domain.GenerationRequest, dims sizeSpec, prompt string) (openai.EditRequest, error) {
	refs := req.References()
	edit := openai.EditRequest{
		Model:          g.profile.Model,
		Prompt:         prompt,
		N:              req.Count,
		Size:           dims.Size,
		Quality:        dims.Quality,
		ResponseFormat: g.profile.ResponseFormat,
		Images:         make([]openai.File, 0, len(refs)),
	}
	var first decodedImage
	for i, u := range refs {
		ref, err := g.fetcher.fetch(ctx, referenceField(req, i), u)
		if err != nil {
			return openai.EditRequest{}, err
		}
		name := "reference"
		if len(refs) > 1 {
			name = fmt.Sprintf("reference-%d", i+1)
		}
		if i == 0 {
			first = ref
		}
		edit.Images = append(edit.Images, ref.asFile(name))
	}
	if req.MaskImageURL != "" {
		mask, err := g.fetcher.fetch(ctx, "maskImageUrl", req.MaskImageURL)
		if err != nil {
			return openai.EditRequest{}, err
		}
		// The mask applies to the first reference.
		if mask.Width != first.Width || mask.Height != first.Height {
			return openai.EditRequest{}, domain.Validationf("mask is %dx%d but reference is %dx%d",
				mask.Width, mask.Height, first.Width, first.Height)
		}
		file := mask.asFile("mask")
		edit.Mask = &file
	}
	return edit, nil
}

// withAdText asks the model to render the ad copy into the image.
func withAdText(prompt, adText string) string {
	if adText == "" {
		return prompt
	}
	return fmt.Sprintf("%s. Include the following text in the ad: '%s'", strings.TrimRight(prompt, ". "), adText)
}

func toAssets(resp *openai.ImagesResponse, count int, dims sizeSpec) ([]domain.GeneratedAsset, error) {
	contract := func(msg string, cause error) error {
		return domain.Upstream(domain.KindUpstreamContractViolation, "openai", 0, msg, cause)
	}
	if resp == nil {
		return nil, contract("empty response", nil)
	}
	if len(resp.Data) != count {
		return nil, contract(fmt.Sprintf("requested %d images, received %d", count, len(resp.Data)), nil)
	}
	fallbackFormat := domain.AssetFormatPNG
	if strings.EqualFold(resp.OutputFormat, "jpeg") || strings.EqualFold(resp.OutputFormat, "jpg") {
		fallbackFormat = domain.AssetFormatJPEG
	}
	assets := make([]domain.GeneratedAsset, 0, count)
	for i, item := range resp.Data {
		switch {
		case item.B64JSON != "":
			data, err := base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				return nil, contract(fmt.Sprintf("image %d is not valid base64", i), err)
			}
			img, err := sniff(data)
			if err != nil {
				return nil, contract(fmt.Sprintf("image %d could not be decoded", i), err)
			}
			format, ok := assetFormat(img.Format)
			if !ok {
				return nil, contract(fmt.Sprintf("image %d has unsupported format %s", i, img.Format), nil)
			}
			assets = append(assets, domain.GeneratedAsset{
				URL:    "data:image/" + string(format) + ";base64," + item.B64JSON,
				Format: format,
				Width:  img.Width,
				Height: img.Height,
				Data:   data,
			})
		case strings.TrimSpace(item.URL) != "":
			assets = append(assets, domain.GeneratedAsset{
				URL:    strings.TrimSpace(item.URL),
				Format: fallbackFormat,
				Width:  dims.Width,
				Height: dims.Height,
			})
		default:
			return nil, contract(fmt.Sprintf("image %d has neither url nor data", i), nil)
		}
	}
	return assets, nil
}

func assetFormat(decoder string) (domain.AssetFormat, bool) {
	switch decoder {
	case "png":
		return domain.AssetFormatPNG, true
	case "jpeg":
		return domain.AssetFormatJPEG, true
	}
	return "", false
}

var _ Generator = (*OpenAIGenerator)(nil)
