package image

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atharvad999/adcreative/internal/domain"
)

// sizeSpec is the upstream size string and quality for one accepted size.
// Width and Height are zero when the upstream picks the dimensions.
type sizeSpec struct {
	Size    string
	Quality string
	Width   int
	Height  int
}

// Profile describes what one image model accepts. MaxReferences bounds how
// many reference images one edit call may upload.
type Profile struct {
	Model          string
	MaxCount       int
	SupportsEdit   bool
	SupportsMask   bool
	MaxReferences  int
	ResponseFormat string
	Sizes          map[domain.ImageSize]sizeSpec
}

var profiles = map[string]Profile{
	"gpt-image-1": {
		Model:         "gpt-image-1",
		MaxCount:      10,
		SupportsEdit:  true,
		SupportsMask:  true,
		MaxReferences: 16,
		Sizes: map[domain.ImageSize]sizeSpec{
			domain.SizeSmall:  {Size: "1024x1024", Quality: "low", Width: 1024, Height: 1024},
			domain.SizeMedium: {Size: "1024x1024", Quality: "medium", Width: 1024, Height: 1024},
			domain.SizeLarge:  {Size: "1024x1024", Quality: "high", Width: 1024, Height: 1024},
			"1024x1024":       {Size: "1024x1024", Width: 1024, Height: 1024},
			"1024x1536":       {Size: "1024x1536", Width: 1024, Height: 1536},
			"1536x1024":       {Size: "1536x1024", Width: 1536, Height: 1024},
			"auto":            {Size: "auto"},
		},
	},
	"dall-e-2": {
		Model:          "dall-e-2",
		MaxCount:       10,
		SupportsEdit:   true,
		SupportsMask:   true,
		MaxReferences:  1,
		ResponseFormat: "b64_json",
		Sizes: map[domain.ImageSize]sizeSpec{
			domain.SizeSmall:  {Size: "256x256", Width: 256, Height: 256},
			domain.SizeMedium: {Size: "512x512", Width: 512, Height: 512},
			domain.SizeLarge:  {Size: "1024x1024", Width: 1024, Height: 1024},
			"256x256":         {Size: "256x256", Width: 256, Height: 256},
			"512x512":         {Size: "512x512", Width: 512, Height: 512},
			"1024x1024":       {Size: "1024x1024", Width: 1024, Height: 1024},
		},
	},
	"dall-e-3": {
		Model:          "dall-e-3",
		MaxCount:       1,
		ResponseFormat: "b64_json",
		Sizes: map[domain.ImageSize]sizeSpec{
			domain.SizeSmall:  {Size: "1024x1024", Quality: "standard", Width: 1024, Height: 1024},
			domain.SizeMedium: {Size: "1024x1024", Quality: "standard", Width: 1024, Height: 1024},
			domain.SizeLarge:  {Size: "1024x1024", Quality: "hd", Width: 1024, Height: 1024},
			"1024x1024":       {Size: "1024x1024", Width: 1024, Height: 1024},
			"1792x1024":       {Size: "1792x1024", Width: 1792, Height: 1024},
			"1024x1792":       {Size: "1024x1792", Width: 1024, Height: 1792},
		},
	},
}

// LookupProfile returns the profile for model, matched case-insensitively.
func LookupProfile(model string) (Profile, bool) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(model))]
	return p, ok
}

// SupportedSizes lists the size values the profile accepts, sorted.
func (p Profile) SupportedSizes() []string {
	out := make([]string, 0, len(p.Sizes))
	for size := range p.Sizes {
		out = append(out, string(size))
	}
	sort.Strings(out)
	return out
}

// validate checks a normalized request against the profile.
func (p Profile) validate(req domain.GenerationRequest) (sizeSpec, error) {
	if req.Prompt == "" {
		return sizeSpec{}, domain.Validationf("prompt is required")
	}
	if req.Count < 1 || req.Count > p.MaxCount {
		return sizeSpec{}, domain.Validationf("count must be between 1 and %d for %s", p.MaxCount, p.Model)
	}
	dims, ok := p.Sizes[req.Size]
	if !ok {
		return sizeSpec{}, domain.Validationf("size %q is not supported by %s (supported: %s)",
			req.Size, p.Model, strings.Join(p.SupportedSizes(), ", "))
	}
	if refs := req.References(); len(refs) > 0 {
		if !p.SupportsEdit {
			return sizeSpec{}, domain.Validationf("%s does not support reference images", p.Model)
		}
		if len(refs) > p.MaxReferences {
			return sizeSpec{}, domain.Validationf("%s accepts at most %d reference image(s), got %d",
				p.Model, p.MaxReferences, len(refs))
		}
		for i, ref := range refs {
			if err := domain.ValidateImageURL(referenceField(req, i), ref, true); err != nil {
				return sizeSpec{}, err
			}
		}
	}
	if req.MaskImageURL != "" {
		if !req.HasReference() {
			return sizeSpec{}, domain.Validationf("maskImageUrl requires referenceImageUrl")
		}
		if !p.SupportsMask {
			return sizeSpec{}, domain.Validationf("%s does not support masks", p.Model)
		}
		if err := domain.ValidateImageURL("maskImageUrl", req.MaskImageURL, true); err != nil {
			return sizeSpec{}, err
		}
	}
	return dims, nil
}

// referenceField names the request field that holds the i-th reference.
func referenceField(req domain.GenerationRequest, i int) string {
	if req.ReferenceImageURL != "" {
		if i == 0 {
			return "referenceImageUrl"
		}
		i--
	}
	return fmt.Sprintf("referenceImageUrls[%d]", i)
}
