package extractor

import (
	"encoding/json"
	"strings"
)

// ParseResponse decodes a model answer into an Extraction. Models wrap JSON in
// markdown fences or prose often enough that both are stripped first.
func ParseResponse(body string) (Extraction, error) {
	raw := strings.TrimSpace(body)
	if raw == "" {
		return Extraction{}, newError("parse", ErrInvalidResponse, "empty body")
	}
	raw = stripFences(raw)
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	} else {
		return Extraction{}, newError("parse", ErrInvalidResponse, "no JSON object in body")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Extraction{}, newError("parse", ErrInvalidResponse, err.Error())
	}
	ex := Extraction{
		CardNumber: strings.TrimSpace(firstString(fields, "cardNumber", "card_number", "identifier")),
		Hero:       strings.TrimSpace(firstString(fields, "hero", "name")),
	}
	if ex.CardNumber == "" {
		return Extraction{}, newError("parse", ErrInvalidResponse, "cardNumber missing")
	}
	return ex, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
