// Package prompt recovers a text-to-image prompt from an existing ad image
// using a vision-capable chat model.
package prompt

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/providers/openai"
)

const (
	systemInstruction = "You are an expert ad creative director. Analyze this image and create a detailed prompt that would generate a similar image using an AI image generator."
	userInstruction   = "Create a detailed prompt for an AI image generator based on this ad image. Describe the style, subject, composition and colour palette. Respond with the prompt only."
	maxPromptTokens   = 600
)

// Reconstructor recovers a prompt from an image URL.
type Reconstructor interface {
	Reconstruct(ctx context.Context, imageURL string) (domain.ReconstructedPrompt, error)
	ReconstructWithText(ctx context.Context, imageURL, adText string) (domain.ReconstructedPrompt, error)
}

type chatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error)
}

// OpenAIOptions configures the OpenAI reconstructor.
type OpenAIOptions struct {
	Model     string
	Logger    *infra.Logger
	OnWarning func(reason, detail string)
}

// OpenAIReconstructor calls chat completions with the image attached.
type OpenAIReconstructor struct {
	client chatClient
	model  string
	logger *infra.Logger
}

// NewOpenAIReconstructor wires the reconstructor to a chat client.
func NewOpenAIReconstructor(client chatClient, opts OpenAIOptions) (*OpenAIReconstructor, error) {
	if client == nil {
		return nil, domain.Configurationf("prompt reconstructor requires an openai client")
	}
	requested := strings.TrimSpace(opts.Model)
	model, reason := normalizeVisionModel(requested)
	if reason != "" && opts.OnWarning != nil {
		opts.OnWarning("model_"+reason, fmt.Sprintf("requested=%s resolved=%s", coalesce(requested, defaultVisionModel), model))
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &OpenAIReconstructor{client: client, model: model, logger: logger}, nil
}

// Reconstruct returns a prompt describing imageURL.
func (r *OpenAIReconstructor) Reconstruct(ctx context.Context, imageURL string) (domain.ReconstructedPrompt, error) {
	return r.ReconstructWithText(ctx, imageURL, "")
}

// ReconstructWithText is Reconstruct with the ad copy passed along so the
// model can account for it.
func (r *OpenAIReconstructor) ReconstructWithText(ctx context.Context, imageURL, adText string) (domain.ReconstructedPrompt, error) {
	imageURL = strings.TrimSpace(imageURL)
	if err := domain.ValidateImageURL("imageUrl", imageURL, true); err != nil {
		return domain.ReconstructedPrompt{}, err
	}
	parts := []openai.ChatPart{
		openai.TextPart(userInstruction),
		openai.ImagePart(imageURL),
	}
	if adText = strings.TrimSpace(adText); adText != "" {
		parts = append(parts, openai.TextPart("The ad text is: "+adText))
	}
	resp, err := r.client.ChatCompletion(ctx, openai.ChatRequest{
		Model:     r.model,
		MaxTokens: maxPromptTokens,
		Logprobs:  true,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: []openai.ChatPart{openai.TextPart(systemInstruction)}},
			{Role: "user", Content: parts},
		},
	})
	if err != nil {
		return domain.ReconstructedPrompt{}, err
	}
	return r.parse(resp)
}

func (r *OpenAIReconstructor) parse(resp *openai.ChatResponse) (domain.ReconstructedPrompt, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return domain.ReconstructedPrompt{}, contractError("response has no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != nil && strings.TrimSpace(*choice.Message.Refusal) != "" {
		refusal := strings.TrimSpace(*choice.Message.Refusal)
		r.logger.Warn().Str("model", r.model).Str("refusal", refusal).Msg("prompt: model refused image")
		return domain.ReconstructedPrompt{}, domain.Upstream(domain.KindContentPolicyViolation, "openai", 0, refusal, nil)
	}
	if choice.FinishReason == "content_filter" {
		return domain.ReconstructedPrompt{}, domain.Upstream(domain.KindContentPolicyViolation, "openai", 0, "response was filtered", nil)
	}
	text := ""
	if choice.Message.Content != nil {
		text = strings.TrimSpace(*choice.Message.Content)
	}
	if text == "" {
		return domain.ReconstructedPrompt{}, contractError("response text is empty")
	}
	out := domain.ReconstructedPrompt{Text: text}
	if choice.Logprobs != nil && len(choice.Logprobs.Content) > 0 {
		var sum float64
		for _, tok := range choice.Logprobs.Content {
			sum += tok.Logprob
		}
		confidence := math.Exp(sum / float64(len(choice.Logprobs.Content)))
		out.Confidence = &confidence
	}
	return out, nil
}

func contractError(msg string) error {
	return domain.Upstream(domain.KindUpstreamContractViolation, "openai", 0, msg, nil)
}

var _ Reconstructor = (*OpenAIReconstructor)(nil)
