package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"cardscan/pkg/logger"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// Gemini extracts identifiers with Google Gemini.
type Gemini struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGemini creates a client for apiKey. A missing key is ErrUnavailable so
// callers can treat the paid path as absent.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, newError("NewGemini", ErrUnavailable, "GEMINI_API_KEY not set")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, newError("NewGemini", ErrUnavailable, err.Error())
	}
	return &Gemini{client: client, model: model, log: logger.WithComponent("gemini")}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Ready() bool { return g != nil && g.client != nil }

// Extract sends one request with the prompt and the image.
func (g *Gemini) Extract(ctx context.Context, jpeg []byte) (Extraction, error) {
	if !g.Ready() {
		return Extraction{}, newError("gemini.Extract", ErrUnavailable, "")
	}
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(Prompt), genai.ImageData("jpeg", jpeg))
	if err != nil {
		return Extraction{}, newError("gemini.Extract", ErrNetwork, err.Error())
	}
	if len(resp.Candidates) == 0 {
		return Extraction{}, newError("gemini.Extract", ErrInvalidResponse, "no candidates returned")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Extraction{}, newError("gemini.Extract", ErrInvalidResponse, fmt.Sprintf("empty content (finish reason %s)", candidate.FinishReason))
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	g.log.Debug().Str("model", g.model).Int("bytes", len(jpeg)).Str("response", sb.String()).Msg("gemini answered")
	return ParseResponse(sb.String())
}

// Close releases the client.
func (g *Gemini) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}
