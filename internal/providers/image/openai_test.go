package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/providers/openai"
	"github.com/atharvad999/adcreative/internal/providers/upstream"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

type stubImagesClient struct {
	resp      *openai.ImagesResponse
	err       error
	generated []openai.ImagesRequest
	edits     []openai.EditRequest
}

func (s *stubImagesClient) GenerateImages(ctx context.Context, req openai.ImagesRequest) (*openai.ImagesResponse, error) {
	s.generated = append(s.generated, req)
	return s.resp, s.err
}

func (s *stubImagesClient) EditImages(ctx context.Context, req openai.EditRequest) (*openai.ImagesResponse, error) {
	s.edits = append(s.edits, req)
	return s.resp, s.err
}

func (s *stubImagesClient) calls() int { return len(s.generated) + len(s.edits) }

func b64Response(t *testing.T, n int, data []byte) *openai.ImagesResponse {
	t.Helper()
	resp := &openai.ImagesResponse{}
	for i := 0; i < n; i++ {
		resp.Data = append(resp.Data, openai.ImageData{B64JSON: base64.StdEncoding.EncodeToString(data)})
	}
	return resp
}

func newGenerator(t *testing.T, client imagesClient, model string) *OpenAIGenerator {
	t.Helper()
	g, err := NewOpenAIGenerator(client, OpenAIOptions{
		Model:       model,
		FetchPolicy: upstream.Policy{Timeout: 2 * time.Second, MaxRetries: 1, RetryDelay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator returned error: %v", err)
	}
	return g
}

func TestGenerateReturnsRequestedCount(t *testing.T) {
	for _, count := range []int{1, 3, 10} {
		stub := &stubImagesClient{resp: b64Response(t, count, pngBytes(t, 8, 6))}
		g := newGenerator(t, stub, "gpt-image-1")

		assets, err := g.Generate(context.Background(), domain.GenerationRequest{Prompt: "coffee ad", Size: domain.SizeMedium, Count: count})
		if err != nil {
			t.Fatalf("count %d: Generate returned error: %v", count, err)
		}
		if len(assets) != count {
			t.Fatalf("len = %d, want %d", len(assets), count)
		}
		for _, a := range assets {
			if a.Format != domain.AssetFormatPNG || a.Width != 8 || a.Height != 6 {
				t.Fatalf("asset = %+v", a)
			}
			if !strings.HasPrefix(a.URL, "data:image/png;base64,") {
				t.Fatalf("url = %.40s", a.URL)
			}
		}
		if len(stub.generated) != 1 {
			t.Fatalf("generation calls = %d, want 1", len(stub.generated))
		}
		sent := stub.generated[0]
		if sent.N != count || sent.Size != "1024x1024" || sent.Quality != "medium" || sent.ResponseFormat != "" {
			t.Fatalf("request = %+v", sent)
		}
	}
}

func TestGenerateDefaultsAndAdText(t *testing.T) {
	stub := &stubImagesClient{resp: b64Response(t, 1, jpegBytes(t, 4, 4))}
	g := newGenerator(t, stub, "")

	assets, err := g.Generate(context.Background(), domain.GenerationRequest{Prompt: " A bakery storefront. ", AdText: "50% off"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if assets[0].Format != domain.AssetFormatJPEG {
		t.Fatalf("format = %s, want jpeg", assets[0].Format)
	}
	sent := stub.generated[0]
	if sent.Prompt != "A bakery storefront. Include the following text in the ad: '50% off'" {
		t.Fatalf("prompt = %q", sent.Prompt)
	}
	if sent.N != 1 || sent.Quality != "high" {
		t.Fatalf("defaults not applied: %+v", sent)
	}
}

func TestGenerateValidationMakesNoCalls(t *testing.T) {
	tests := []struct {
		name  string
		model string
		req   domain.GenerationRequest
	}{
		{"missing prompt", "gpt-image-1", domain.GenerationRequest{Prompt: "  ", Count: 1}},
		{"count too high", "gpt-image-1", domain.GenerationRequest{Prompt: "x", Count: 11}},
		{"negative count", "gpt-image-1", domain.GenerationRequest{Prompt: "x", Count: -1}},
		{"unknown size", "gpt-image-1", domain.GenerationRequest{Prompt: "x", Size: "huge"}},
		{"size not in profile", "dall-e-2", domain.GenerationRequest{Prompt: "x", Size: "1024x1536"}},
		{"dall-e-3 single image", "dall-e-3", domain.GenerationRequest{Prompt: "x", Count: 2}},
		{"dall-e-3 no edits", "dall-e-3", domain.GenerationRequest{Prompt: "x", ReferenceImageURL: "https://a/b.png"}},
		{"bad reference url", "gpt-image-1", domain.GenerationRequest{Prompt: "x", ReferenceImageURL: "ftp://a/b.png"}},
		{"dall-e-2 single reference", "dall-e-2", domain.GenerationRequest{Prompt: "x", ReferenceImageURLs: []string{"https://a/1.png", "https://a/2.png"}}},
		{"too many references", "gpt-image-1", domain.GenerationRequest{Prompt: "x", ReferenceImageURL: "https://a/0.png", ReferenceImageURLs: manyURLs(16)}},
		{"bad url in reference list", "gpt-image-1", domain.GenerationRequest{Prompt: "x", ReferenceImageURLs: []string{"https://a/1.png", "ftp://a/2.png"}}},
		{"mask without reference", "gpt-image-1", domain.GenerationRequest{Prompt: "x", MaskImageURL: "https://a/m.png"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubImagesClient{}
			_, err := newGenerator(t, stub, tc.model).Generate(context.Background(), tc.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("error = %v, want validation error", err)
			}
			if stub.calls() != 0 {
				t.Fatalf("upstream calls = %d, want 0", stub.calls())
			}
		})
	}
}

func TestGenerateCountMismatchIsContractViolation(t *testing.T) {
	stub := &stubImagesClient{resp: b64Response(t, 1, pngBytes(t, 2, 2))}
	_, err := newGenerator(t, stub, "gpt-image-1").Generate(context.Background(), domain.GenerationRequest{Prompt: "x", Count: 2})
	if !errors.Is(err, domain.ErrUpstreamContractViolation) {
		t.Fatalf("error = %v, want contract violation", err)
	}
}

func TestGenerateRejectsUndecodableImage(t *testing.T) {
	stub := &stubImagesClient{resp: &openai.ImagesResponse{Data: []openai.ImageData{{B64JSON: base64.StdEncoding.EncodeToString([]byte("not an image"))}}}}
	_, err := newGenerator(t, stub, "gpt-image-1").Generate(context.Background(), domain.GenerationRequest{Prompt: "x"})
	if !errors.Is(err, domain.ErrUpstreamContractViolation) {
		t.Fatalf("error = %v, want contract violation", err)
	}
}

func TestGenerateHostedURLUsesRequestedDimensions(t *testing.T) {
	stub := &stubImagesClient{resp: &openai.ImagesResponse{Data: []openai.ImageData{{URL: "https://cdn.example/a.png"}}}}
	assets, err := newGenerator(t, stub, "dall-e-2").Generate(context.Background(), domain.GenerationRequest{Prompt: "x", Size: domain.SizeSmall})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if assets[0].URL != "https://cdn.example/a.png" || assets[0].Width != 256 || assets[0].Height != 256 {
		t.Fatalf("asset = %+v", assets[0])
	}
	if stub.generated[0].ResponseFormat != "b64_json" {
		t.Fatalf("response_format = %q", stub.generated[0].ResponseFormat)
	}
}

func TestGenerateWithReferenceEditsImage(t *testing.T) {
	ref := pngBytes(t, 16, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(ref)
	}))
	defer srv.Close()

	stub := &stubImagesClient{resp: b64Response(t, 2, pngBytes(t, 16, 16))}
	g := newGenerator(t, stub, "gpt-image-1")
	g.fetcher.client = srv.Client()

	assets, err := g.Generate(context.Background(), domain.GenerationRequest{
		Prompt:            "same product, autumn theme",
		ReferenceImageURL: srv.URL + "/ref.png",
		MaskImageURL:      srv.URL + "/mask.png",
		Count:             2,
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("len = %d, want 2", len(assets))
	}
	if len(stub.generated) != 0 || len(stub.edits) != 1 {
		t.Fatalf("calls generated=%d edits=%d", len(stub.generated), len(stub.edits))
	}
	edit := stub.edits[0]
	if len(edit.Images) != 1 {
		t.Fatalf("images = %d, want 1", len(edit.Images))
	}
	if img := edit.Images[0]; !bytes.Equal(img.Data, ref) || img.ContentType != "image/png" || img.Name != "reference.png" {
		t.Fatalf("image part = %s %s", img.Name, img.ContentType)
	}
	if edit.Mask == nil || edit.N != 2 {
		t.Fatalf("edit = %+v", edit)
	}
}

func TestGenerateReferenceFetchFailures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		want     error
		wantHits int32
	}{
		{
			name:     "not found is caller error",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			want:     domain.ErrValidation,
			wantHits: 1,
		},
		{
			name:     "server error retried then unavailable",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			want:     domain.ErrUpstreamUnavailable,
			wantHits: 2,
		},
		{
			name:     "not an image",
			handler:  func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html></html>")) },
			want:     domain.ErrValidation,
			wantHits: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				tc.handler(w, r)
			}))
			defer srv.Close()

			stub := &stubImagesClient{}
			g := newGenerator(t, stub, "gpt-image-1")
			g.fetcher.client = srv.Client()
			_, err := g.Generate(context.Background(), domain.GenerationRequest{Prompt: "x", ReferenceImageURL: srv.URL})
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			if hits != tc.wantHits {
				t.Fatalf("fetch hits = %d, want %d", hits, tc.wantHits)
			}
			if stub.calls() != 0 {
				t.Fatalf("generation calls = %d, want 0", stub.calls())
			}
		})
	}
}

func TestGenerateReferenceFromDataURL(t *testing.T) {
	stub := &stubImagesClient{resp: b64Response(t, 1, pngBytes(t, 4, 4))}
	g := newGenerator(t, stub, "dall-e-2")
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegBytes(t, 4, 4))

	if _, err := g.Generate(context.Background(), domain.GenerationRequest{Prompt: "x", ReferenceImageURL: dataURL}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got := stub.edits[0].Images[0]; got.Name != "reference.jpg" || got.ContentType != "image/jpeg" {
		t.Fatalf("image part = %s %s", got.Name, got.ContentType)
	}
}

func manyURLs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://img.example/%d.png", i+1)
	}
	return out
}

func TestGenerateWithSeveralReferences(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(t, 8, 8))
	}))
	defer srv.Close()

	stub := &stubImagesClient{resp: b64Response(t, 1, pngBytes(t, 8, 8))}
	g := newGenerator(t, stub, "gpt-image-1")
	g.fetcher.client = srv.Client()

	_, err := g.Generate(context.Background(), domain.GenerationRequest{
		Prompt:             "gift basket with these products",
		ReferenceImageURL:  srv.URL + "/soap.png",
		ReferenceImageURLs: []string{srv.URL + "/candle.png", "  ", srv.URL + "/towel.png"},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if hits != 3 {
		t.Fatalf("fetch hits = %d, want 3", hits)
	}
	if len(stub.edits) != 1 {
		t.Fatalf("edit calls = %d, want 1", len(stub.edits))
	}
	images := stub.edits[0].Images
	if len(images) != 3 {
		t.Fatalf("images = %d, want 3", len(images))
	}
	for i, img := range images {
		if want := fmt.Sprintf("reference-%d.png", i+1); img.Name != want {
			t.Fatalf("image %d name = %q, want %q", i, img.Name, want)
		}
	}
}

func TestGenerateSeveralReferencesNamesFailingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(pngBytes(t, 8, 8))
	}))
	defer srv.Close()

	stub := &stubImagesClient{}
	g := newGenerator(t, stub, "gpt-image-1")
	g.fetcher.client = srv.Client()

	_, err := g.Generate(context.Background(), domain.GenerationRequest{
		Prompt:             "x",
		ReferenceImageURLs: []string{srv.URL + "/ok.png", srv.URL + "/missing.png"},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "referenceImageUrls[1]") {
		t.Fatalf("message = %q, want field name", err.Error())
	}
	if stub.calls() != 0 {
		t.Fatalf("generation calls = %d, want 0", stub.calls())
	}
}

func TestSniffWebP(t *testing.T) {
	// RIFF container holding a 1x1 lossless (VP8L) bitstream header.
	webp := []byte{
		'R', 'I', 'F', 'F', 18, 0, 0, 0, 'W', 'E', 'B', 'P',
		'V', 'P', '8', 'L', 5, 0, 0, 0, 0x2f, 0, 0, 0, 0, 0,
	}
	img, err := sniff(webp)
	if err != nil {
		t.Fatalf("sniff returned error: %v", err)
	}
	if img.Format != "webp" || img.Width != 1 || img.Height != 1 {
		t.Fatalf("sniff = %s %dx%d", img.Format, img.Width, img.Height)
	}
}

func TestNewOpenAIGeneratorRejectsUnknownModel(t *testing.T) {
	_, err := NewOpenAIGenerator(&stubImagesClient{}, OpenAIOptions{Model: "midjourney"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("error = %v, want configuration error", err)
	}
}
