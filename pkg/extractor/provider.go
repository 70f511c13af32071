package extractor

import (
	"context"
	"fmt"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider string // gemini, openai or none
	APIKey   string
	Model    string
	BaseURL  string
}

// New builds the configured extractor. It returns (nil, nil) when the paid
// path is disabled or has no credential, which is a normal configuration.
func New(ctx context.Context, s Settings) (Extractor, error) {
	if s.APIKey == "" {
		return nil, nil
	}
	switch s.Provider {
	case "", "none":
		return nil, nil
	case "gemini":
		g, err := NewGemini(ctx, s.APIKey, s.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "openai":
		o, err := NewOpenAI(s.APIKey, s.Model, s.BaseURL)
		if err != nil {
			return nil, err
		}
		return o, nil
	}
	return nil, fmt.Errorf("unknown paid provider %q", s.Provider)
}
