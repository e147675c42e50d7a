package prompt

import (
	"strings"
)

const defaultVisionModel = "gpt-4o"

var visionModelCanonical = map[string]string{
	"gpt-4o":       "gpt-4o",
	"gpt-4o-mini":  "gpt-4o-mini",
	"gpt-4.1":      "gpt-4.1",
	"gpt-4.1-mini": "gpt-4.1-mini",
}

var visionModelAliases = map[string]string{
	"gpt4o":                  "gpt-4o",
	"gpt-4-o":                "gpt-4o",
	"gpt-4o-2024-08-06":      "gpt-4o",
	"gpt-4o-2024-11-20":      "gpt-4o",
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt4.1":                 "gpt-4.1",
	"gpt4.1-mini":            "gpt-4.1-mini",
}

// normalizeVisionModel resolves the configured model to one that accepts
// image input. reason is "alias" or "defaulted" when the input was changed.
func normalizeVisionModel(input string) (model, reason string) {
	key := strings.ToLower(strings.TrimSpace(input))
	key = strings.Join(strings.Fields(key), "-")
	if key == "" {
		return defaultVisionModel, ""
	}
	if m, ok := visionModelCanonical[key]; ok {
		return m, ""
	}
	if m, ok := visionModelAliases[key]; ok {
		return m, "alias"
	}
	return defaultVisionModel, "defaulted"
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
