package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/providers/shutterstock"
)

// recorder collects the order in which the stubs below are called.
type recorder struct{ calls []string }

type stubSearch struct {
	rec     *recorder
	results []domain.ImageDescriptor
	err     error
	lastReq shutterstock.SearchRequest
}

func (s *stubSearch) Search(ctx context.Context, req shutterstock.SearchRequest) ([]domain.ImageDescriptor, error) {
	s.rec.calls = append(s.rec.calls, "search")
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	out := s.results
	if len(out) > req.PerPage {
		out = out[:req.PerPage]
	}
	return out, nil
}

func (s *stubSearch) FeaturedCollections(ctx context.Context, perPage int) ([]domain.Collection, error) {
	s.rec.calls = append(s.rec.calls, "collections")
	return []domain.Collection{{ID: "c1", Name: "Travel"}}, nil
}

func (s *stubSearch) CollectionImages(ctx context.Context, id string, page, perPage int) ([]domain.ImageDescriptor, error) {
	s.rec.calls = append(s.rec.calls, "collection:"+id)
	return s.results, nil
}

type stubGenerator struct {
	rec         *recorder
	err         error
	validateErr error
	lastReq     domain.GenerationRequest
	runs        int
}

func (g *stubGenerator) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.GeneratedAsset, error) {
	g.rec.calls = append(g.rec.calls, "generate")
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	g.runs++
	out := make([]domain.GeneratedAsset, req.Count)
	for i := range out {
		out[i] = domain.GeneratedAsset{URL: fmt.Sprintf("https://cdn.example/%d-%d.png", g.runs, i), Format: domain.AssetFormatPNG, Width: 1024, Height: 1024}
	}
	return out, nil
}

func (g *stubGenerator) Validate(req domain.GenerationRequest) error { return g.validateErr }

type stubReconstructor struct {
	rec        *recorder
	text       string
	texts      []string
	err        error
	lastURL    string
	lastAdText string
}

func (r *stubReconstructor) Reconstruct(ctx context.Context, imageURL string) (domain.ReconstructedPrompt, error) {
	return r.ReconstructWithText(ctx, imageURL, "")
}

func (r *stubReconstructor) ReconstructWithText(ctx context.Context, imageURL, adText string) (domain.ReconstructedPrompt, error) {
	r.rec.calls = append(r.rec.calls, "reconstruct")
	r.lastURL, r.lastAdText = imageURL, adText
	if r.err != nil {
		return domain.ReconstructedPrompt{}, r.err
	}
	if len(r.texts) > 0 {
		text := r.texts[0]
		r.texts = r.texts[1:]
		return domain.ReconstructedPrompt{Text: text}, nil
	}
	return domain.ReconstructedPrompt{Text: r.text}, nil
}

type fixture struct {
	rec   *recorder
	srch  *stubSearch
	gen   *stubGenerator
	recon *stubReconstructor
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := &recorder{}
	f := &fixture{
		rec:   rec,
		srch:  &stubSearch{rec: rec},
		gen:   &stubGenerator{rec: rec},
		recon: &stubReconstructor{rec: rec, text: "a vintage travel poster of Lisbon"},
	}
	svc, err := New(f.srch, f.gen, f.recon, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	f.svc = svc
	return f
}

func TestGenerateRequiresPromptOrReference(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Generate(context.Background(), domain.GenerationRequest{Prompt: "   ", Size: domain.SizeLarge, Count: 1})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "must supply prompt or reference image") {
		t.Fatalf("message = %q", err.Error())
	}
	if len(f.rec.calls) != 0 {
		t.Fatalf("calls = %v, want none", f.rec.calls)
	}
}

func TestGenerateWithOnlyReferenceReconstructsFirst(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Generate(context.Background(), domain.GenerationRequest{
		ReferenceImageURL: "https://img.example/ref.jpg",
		AdText:            "Fly now",
		Count:             2,
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if strings.Join(f.rec.calls, ",") != "reconstruct,generate" {
		t.Fatalf("calls = %v, want reconstruct then generate", f.rec.calls)
	}
	if f.recon.lastURL != "https://img.example/ref.jpg" || f.recon.lastAdText != "Fly now" {
		t.Fatalf("reconstruct input = %q %q", f.recon.lastURL, f.recon.lastAdText)
	}
	if f.gen.lastReq.Prompt != "a vintage travel poster of Lisbon" {
		t.Fatalf("generation prompt = %q", f.gen.lastReq.Prompt)
	}
	if res.Reconstructed == nil || res.Prompt != f.gen.lastReq.Prompt {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(res.Assets))
	}
}

func TestGenerateWithSeveralReferencesReconstructsFromFirst(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Generate(context.Background(), domain.GenerationRequest{
		ReferenceImageURLs: []string{" ", "https://img.example/a.jpg", "https://img.example/b.jpg"},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if f.recon.lastURL != "https://img.example/a.jpg" {
		t.Fatalf("reconstructed from %q, want first reference", f.recon.lastURL)
	}
	if got := f.gen.lastReq.References(); len(got) != 2 {
		t.Fatalf("generator references = %v, want both", got)
	}
}

// Identical requests may produce different prompts and images; only the
// shape of each result is stable.
func TestGenerateRepeatedCallsKeepShape(t *testing.T) {
	f := newFixture(t)
	f.recon.texts = []string{"a teal sneaker on concrete", "minimal sneaker ad, pastel backdrop"}
	req := domain.GenerationRequest{ReferenceImageURL: "https://img.example/ref.jpg", Count: 2}

	for i := 0; i < 2; i++ {
		res, err := f.svc.Generate(context.Background(), req)
		if err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		if res.Reconstructed == nil || strings.TrimSpace(res.Reconstructed.Text) == "" || res.Prompt != res.Reconstructed.Text {
			t.Fatalf("call %d: prompt shape = %+v", i+1, res)
		}
		if len(res.Assets) != 2 {
			t.Fatalf("call %d: assets = %d, want 2", i+1, len(res.Assets))
		}
		for _, a := range res.Assets {
			if a.URL == "" || a.Format == "" || a.Width <= 0 || a.Height <= 0 {
				t.Fatalf("call %d: asset shape = %+v", i+1, a)
			}
		}
	}
}

func TestGenerateWithPromptSkipsReconstruction(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Generate(context.Background(), domain.GenerationRequest{
		Prompt:            "sunlit kitchen",
		ReferenceImageURL: "https://img.example/ref.jpg",
		Count:             3,
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if strings.Join(f.rec.calls, ",") != "generate" {
		t.Fatalf("calls = %v", f.rec.calls)
	}
	if res.Reconstructed != nil {
		t.Fatalf("reconstructed = %+v, want nil", res.Reconstructed)
	}
}

func TestGenerateReturnsRequestedCount(t *testing.T) {
	for _, n := range []int{1, 4, 10} {
		f := newFixture(t)
		res, err := f.svc.Generate(context.Background(), domain.GenerationRequest{Prompt: "x", Count: n})
		if err != nil {
			t.Fatalf("count %d: %v", n, err)
		}
		if len(res.Assets) != n {
			t.Fatalf("assets = %d, want %d", len(res.Assets), n)
		}
		for _, a := range res.Assets {
			if a.URL == "" || a.Format == "" || a.Width <= 0 || a.Height <= 0 {
				t.Fatalf("asset shape = %+v", a)
			}
		}
	}
}

func TestGenerateStopsWhenReconstructionFails(t *testing.T) {
	f := newFixture(t)
	f.recon.err = domain.Upstream(domain.KindContentPolicyViolation, "openai", 0, "refused", nil)
	_, err := f.svc.Generate(context.Background(), domain.GenerationRequest{ReferenceImageURL: "https://img.example/ref.jpg"})
	if !errors.Is(err, domain.ErrContentPolicyViolation) {
		t.Fatalf("error = %v, want content policy violation", err)
	}
	if strings.Join(f.rec.calls, ",") != "reconstruct" {
		t.Fatalf("calls = %v", f.rec.calls)
	}
}

func TestGenerateValidatesBeforeReconstruction(t *testing.T) {
	f := newFixture(t)
	f.gen.validateErr = domain.Validationf("dall-e-3 does not support reference images")
	_, err := f.svc.Generate(context.Background(), domain.GenerationRequest{ReferenceImageURL: "https://img.example/ref.jpg"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if len(f.rec.calls) != 0 {
		t.Fatalf("calls = %v, want none", f.rec.calls)
	}
}

func TestBrowsePassesLocaleHints(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.srch.results = append(f.srch.results, domain.ImageDescriptor{ID: fmt.Sprint(i)})
	}
	got, err := f.svc.Browse(context.Background(), BrowseRequest{Query: "bikes", Page: 1, PerPage: 3, Locale: "de-AT,de;q=0.9", Country: "AT"})
	if err != nil {
		t.Fatalf("Browse returned error: %v", err)
	}
	if len(got) != 3 || got[0].ID != "0" || got[2].ID != "2" {
		t.Fatalf("results = %+v", got)
	}
	if f.srch.lastReq.Language != "de" || f.srch.lastReq.Region != "AT" {
		t.Fatalf("hints = %q %q", f.srch.lastReq.Language, f.srch.lastReq.Region)
	}
}

func TestInspirationUsesPopularSortAndDefaultLimit(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Inspiration(context.Background(), " food ", 0, "", ""); err != nil {
		t.Fatalf("Inspiration returned error: %v", err)
	}
	req := f.srch.lastReq
	if req.Query != "food" || req.Sort != "popular" || req.PerPage != DefaultInspirationLimit || req.Page != 1 {
		t.Fatalf("search request = %+v", req)
	}
	if _, err := f.svc.Inspiration(context.Background(), "", 5, "", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank category error = %v", err)
	}
}

func TestCategoriesReturnsCopy(t *testing.T) {
	f := newFixture(t)
	got := f.svc.Categories()
	got[0] = "mutated"
	if f.svc.Categories()[0] != "travel" {
		t.Fatal("Categories exposed internal slice")
	}
}

func TestSearchLanguage(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"en-US":           "",
		"de-AT":           "de",
		"fr-CA,fr;q=0.9":  "fr",
		"id":              "id",
		"ja-JP":           "ja",
		"zh-TW":           "zh-Hant",
		"zh-CN":           "zh",
		"not a locale!!!": "",
	}
	for in, want := range tests {
		if got := SearchLanguage(in); got != want {
			t.Errorf("SearchLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchRegion(t *testing.T) {
	tests := map[string]string{
		"":    "",
		"US":  "US",
		"DE":  "DE",
		"419": "",
		"x":   "",
	}
	for in, want := range tests {
		if got := SearchRegion(in); got != want {
			t.Errorf("SearchRegion(%q) = %q, want %q", in, got, want)
		}
	}
}
