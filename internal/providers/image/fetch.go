package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	stdimage "image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/providers/openai"
	"github.com/atharvad999/adcreative/internal/providers/upstream"
)

// decodedImage is an image payload with the header fields we read from it.
type decodedImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

func (d decodedImage) contentType() string {
	return "image/" + d.Format
}

// sniff decodes the image header. Formats are the registered decoders:
// png, jpeg, gif and webp.
func sniff(data []byte) (decodedImage, error) {
	cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return decodedImage{}, err
	}
	return decodedImage{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// referenceFetcher downloads caller-supplied reference and mask images.
type referenceFetcher struct {
	client *http.Client
	caller *upstream.Caller
	policy upstream.Policy
}

// fetch loads raw into memory. A URL the remote host refuses is the
// caller's fault and reported as a validation error.
func (f *referenceFetcher) fetch(ctx context.Context, field, raw string) (decodedImage, error) {
	if strings.HasPrefix(strings.ToLower(raw), "data:") {
		return decodeDataURL(field, raw)
	}
	data, err := upstream.Call(ctx, f.caller, "fetch", f.policy, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
		if err != nil {
			return nil, domain.Validationf("%s is not a valid URL", field)
		}
		status, _, body, err := f.caller.Do(f.client, req)
		if err != nil {
			return nil, err
		}
		if status >= 400 && status < 500 {
			return nil, domain.Validationf("%s could not be fetched (status %d)", field, status)
		}
		if status < 200 || status >= 300 {
			return nil, f.caller.StatusError(status, upstream.Snippet(body))
		}
		return body, nil
	})
	if err != nil {
		return decodedImage{}, err
	}
	img, err := sniff(data)
	if err != nil {
		return decodedImage{}, domain.Validationf("%s does not point to a supported image", field)
	}
	return img, nil
}

func decodeDataURL(field, raw string) (decodedImage, error) {
	comma := strings.IndexByte(raw, ',')
	if comma < 0 {
		return decodedImage{}, domain.Validationf("%s is not a valid data URL", field)
	}
	meta, payload := raw[len("data:"):comma], raw[comma+1:]
	var data []byte
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return decodedImage{}, domain.Validationf("%s has invalid base64 data", field)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return decodedImage{}, domain.Validationf("%s is not a valid data URL", field)
		}
		data = []byte(unescaped)
	}
	img, err := sniff(data)
	if err != nil {
		return decodedImage{}, domain.Validationf("%s does not contain a supported image", field)
	}
	return img, nil
}

func (d decodedImage) asFile(name string) openai.File {
	ext := d.Format
	if ext == "jpeg" {
		ext = "jpg"
	}
	return openai.File{
		Name:        fmt.Sprintf("%s.%s", name, ext),
		ContentType: d.contentType(),
		Data:        d.Data,
	}
}
