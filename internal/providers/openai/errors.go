package openai

import (
	"encoding/json"
	"strings"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/providers/upstream"
)

// APIError is the error object OpenAI returns on non-2xx responses.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    string `json:"code"`
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

var contentPolicyCodes = map[string]struct{}{
	"content_policy_violation": {},
	"moderation_blocked":       {},
}

var imageURLCodes = map[string]struct{}{
	"invalid_image_url": {},
}

// IsContentPolicy reports whether the error is a safety-system refusal.
func (e *APIError) IsContentPolicy() bool {
	if e == nil {
		return false
	}
	if _, ok := contentPolicyCodes[e.Code]; ok {
		return true
	}
	if _, ok := contentPolicyCodes[e.Type]; ok {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "safety system")
}

// IsImageURL reports whether OpenAI could not use an image URL the caller
// supplied, usually because it could not download it.
func (e *APIError) IsImageURL() bool {
	if e == nil {
		return false
	}
	if _, ok := imageURLCodes[e.Code]; ok {
		return true
	}
	return strings.Contains(strings.ToLower(e.Param), "image_url")
}

func parseAPIError(raw []byte) *APIError {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
		return nil
	}
	env.Error.Message = strings.TrimSpace(env.Error.Message)
	return env.Error
}

func (c *Client) statusError(status int, raw []byte) error {
	apiErr := parseAPIError(raw)
	if apiErr == nil {
		return c.caller.StatusError(status, upstream.Snippet(raw))
	}
	if status < 500 && apiErr.IsContentPolicy() {
		return domain.Upstream(domain.KindContentPolicyViolation, upstreamName, status, apiErr.Message, nil)
	}
	if status >= 400 && status < 500 && apiErr.IsImageURL() {
		return domain.Upstream(domain.KindValidation, upstreamName, status, apiErr.Message, nil)
	}
	return c.caller.StatusError(status, apiErr.Message)
}
