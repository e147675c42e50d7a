// Package openai is a thin client for the OpenAI image and chat completion
// endpoints used by the generator and the prompt reconstructor.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/metrics"
	"github.com/atharvad999/adcreative/internal/providers/upstream"
)

const (
	upstreamName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
)

// Options configures the OpenAI client.
type Options struct {
	APIKey       string
	Organization string
	BaseURL      string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	Metrics      *metrics.Collector
	ImagePolicy  upstream.Policy
	ChatPolicy   upstream.Policy
}

// Client issues authenticated calls to the OpenAI REST API. Every call runs
// under the upstream retry policy for its endpoint family.
type Client struct {
	apiKey       string
	organization string
	baseURL      string
	httpClient   *http.Client
	caller       *upstream.Caller
	imagePolicy  upstream.Policy
	chatPolicy   upstream.Policy
}

// NewClient constructs a client. An empty API key is a configuration error.
func NewClient(opts Options) (*Client, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, domain.Configurationf("OPENAI_API_KEY is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	imagePolicy := opts.ImagePolicy
	if imagePolicy.Timeout <= 0 {
		imagePolicy = upstream.DefaultPolicy(30 * time.Second)
	}
	chatPolicy := opts.ChatPolicy
	if chatPolicy.Timeout <= 0 {
		chatPolicy = upstream.DefaultPolicy(10 * time.Second)
	}
	return &Client{
		apiKey:       key,
		organization: strings.TrimSpace(opts.Organization),
		baseURL:      baseURL,
		httpClient:   httpClient,
		caller:       upstream.NewCaller(upstreamName, opts.Logger, opts.Metrics),
		imagePolicy:  imagePolicy,
		chatPolicy:   chatPolicy,
	}, nil
}

// ImagesRequest is the JSON body of POST /images/generations.
type ImagesRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// EditRequest is sent as multipart/form-data to POST /images/edits. A single
// image is sent as "image"; several are sent as repeated "image[]" parts.
type EditRequest struct {
	Model          string
	Prompt         string
	N              int
	Size           string
	Quality        string
	ResponseFormat string
	Images         []File
	Mask           *File
}

// File is an in-memory upload part.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImagesResponse is the shared response shape of the image endpoints.
type ImagesResponse struct {
	Created      int64       `json:"created"`
	Data         []ImageData `json:"data"`
	OutputFormat string      `json:"output_format,omitempty"`
	Size         string      `json:"size,omitempty"`
}

// ImageData is one generated image, either hosted or inline.
type ImageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// GenerateImages calls POST /images/generations.
func (c *Client) GenerateImages(ctx context.Context, req ImagesRequest) (*ImagesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("openai: encode generation request: %w", err)
	}
	return upstream.Call(ctx, c.caller, "images.generations", c.imagePolicy, func(ctx context.Context) (*ImagesResponse, error) {
		var out ImagesResponse
		if err := c.post(ctx, "/images/generations", "application/json", body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// EditImages calls POST /images/edits with the reference images and an
// optional mask.
func (c *Client) EditImages(ctx context.Context, req EditRequest) (*ImagesResponse, error) {
	body, contentType, err := encodeEdit(req)
	if err != nil {
		return nil, fmt.Errorf("openai: encode edit request: %w", err)
	}
	return upstream.Call(ctx, c.caller, "images.edits", c.imagePolicy, func(ctx context.Context) (*ImagesResponse, error) {
		var out ImagesResponse
		if err := c.post(ctx, "/images/edits", contentType, body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

func encodeEdit(req EditRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if len(req.Images) == 0 {
		return nil, "", fmt.Errorf("edit requires at least one image")
	}
	field := "image"
	if len(req.Images) > 1 {
		field = "image[]"
	}
	for _, img := range req.Images {
		if err := writeFile(writer, field, img); err != nil {
			return nil, "", err
		}
	}
	if req.Mask != nil {
		if err := writeFile(writer, "mask", *req.Mask); err != nil {
			return nil, "", err
		}
	}
	fields := [][2]string{
		{"model", req.Model},
		{"prompt", req.Prompt},
		{"size", req.Size},
		{"quality", req.Quality},
		{"response_format", req.ResponseFormat},
	}
	if req.N > 0 {
		fields = append(fields, [2]string{"n", strconv.Itoa(req.N)})
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func writeFile(writer *multipart.Writer, field string, f File) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(f.Data)
	return err
}

// ChatRequest is the body of POST /chat/completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Logprobs    bool          `json:"logprobs,omitempty"`
}

// ChatMessage carries either plain text or multimodal parts.
type ChatMessage struct {
	Role    string     `json:"role"`
	Content []ChatPart `json:"content"`
}

// ChatPart is a text or image_url content part.
type ChatPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image by URL or data URL.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ChatPart { return ChatPart{Type: "text", Text: text} }

// ImagePart builds an image_url content part.
func ImagePart(url string) ChatPart {
	return ChatPart{Type: "image_url", ImageURL: &ImageURL{URL: url}}
}

// ChatResponse is the subset of the chat completion response we read.
type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
		Refusal *string `json:"refusal"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
	Logprobs     *struct {
		Content []struct {
			Token   string  `json:"token"`
			Logprob float64 `json:"logprob"`
		} `json:"content"`
	} `json:"logprobs"`
}

// ChatCompletion calls POST /chat/completions.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("openai: encode chat request: %w", err)
	}
	return upstream.Call(ctx, c.caller, "chat.completions", c.chatPolicy, func(ctx context.Context) (*ChatResponse, error) {
		var out ChatResponse
		if err := c.post(ctx, "/chat/completions", "application/json", body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}

	status, _, raw, err := c.caller.Do(c.httpClient, httpReq)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return c.statusError(status, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.caller.ContractError("response is not valid JSON", err)
	}
	return nil
}
