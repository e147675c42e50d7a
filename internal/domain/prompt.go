package domain

import (
	"net/url"
	"strings"
)

// ImageSize is the requested output size. Besides the small/medium/large
// tiers, explicit upstream dimensions such as "1024x1536" are accepted and
// checked against the active model profile.
type ImageSize string

const (
	SizeSmall  ImageSize = "small"
	SizeMedium ImageSize = "medium"
	SizeLarge  ImageSize = "large"
)

// DefaultImageSize is used when a request omits the size.
const DefaultImageSize = SizeLarge

// GenerationRequest is the validated input to the image generation client.
// ReferenceImageURL and ReferenceImageURLs may be combined; the single field
// comes first in References.
type GenerationRequest struct {
	Prompt             string    `json:"prompt"`
	ReferenceImageURL  string    `json:"referenceImageUrl,omitempty"`
	ReferenceImageURLs []string  `json:"referenceImageUrls,omitempty"`
	MaskImageURL       string    `json:"maskImageUrl,omitempty"`
	AdText             string    `json:"adText,omitempty"`
	Size               ImageSize `json:"size"`
	Count              int       `json:"count"`
}

// Normalize trims free-form fields and applies defaults for size and count.
func (r *GenerationRequest) Normalize() {
	if r == nil {
		return
	}
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.ReferenceImageURL = strings.TrimSpace(r.ReferenceImageURL)
	if len(r.ReferenceImageURLs) > 0 {
		refs := make([]string, 0, len(r.ReferenceImageURLs))
		for _, u := range r.ReferenceImageURLs {
			if u = strings.TrimSpace(u); u != "" {
				refs = append(refs, u)
			}
		}
		r.ReferenceImageURLs = refs
	}
	r.MaskImageURL = strings.TrimSpace(r.MaskImageURL)
	r.AdText = strings.TrimSpace(r.AdText)
	r.Size = ImageSize(strings.ToLower(strings.TrimSpace(string(r.Size))))
	if r.Size == "" {
		r.Size = DefaultImageSize
	}
	if r.Count == 0 {
		r.Count = 1
	}
}

// References returns every reference image URL in upload order.
func (r GenerationRequest) References() []string {
	var out []string
	if r.ReferenceImageURL != "" {
		out = append(out, r.ReferenceImageURL)
	}
	for _, u := range r.ReferenceImageURLs {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// HasReference reports whether the request edits existing images.
func (r GenerationRequest) HasReference() bool {
	return len(r.References()) > 0
}

// ReconstructedPrompt is the textual prompt recovered from an existing image.
type ReconstructedPrompt struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ValidateImageURL checks that raw is an absolute http(s) URL. When allowData
// is set, data:image/... URLs are accepted as well.
func ValidateImageURL(field, raw string, allowData bool) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Validationf("%s is required", field)
	}
	if allowData && strings.HasPrefix(strings.ToLower(raw), "data:image/") {
		if !strings.Contains(raw, ",") {
			return Validationf("%s is not a valid data URL", field)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Validationf("%s is not a valid URL", field)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Validationf("%s must use http or https", field)
	}
	if u.Host == "" {
		return Validationf("%s must include a host", field)
	}
	return nil
}
