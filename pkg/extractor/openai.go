package extractor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"cardscan/pkg/logger"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI extracts identifiers through the chat completions API. BaseURL lets
// it talk to any compatible endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAI creates a client for apiKey. A missing key is ErrUnavailable.
func NewOpenAI(apiKey, model, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, newError("NewOpenAI", ErrUnavailable, "OPENAI_API_KEY not set")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    logger.WithComponent("openai"),
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Ready() bool { return o != nil && o.client != nil }

// Extract sends one chat completion with the image inlined as a data URL.
func (o *OpenAI) Extract(ctx context.Context, jpeg []byte) (Extraction, error) {
	if !o.Ready() {
		return Extraction{}, newError("openai.Extract", ErrUnavailable, "")
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: Prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailHigh,
					}},
				},
			},
		},
	})
	if err != nil {
		return Extraction{}, newError("openai.Extract", ErrNetwork, describe(err))
	}
	if len(resp.Choices) == 0 {
		return Extraction{}, newError("openai.Extract", ErrInvalidResponse, "no choices returned")
	}
	content := resp.Choices[0].Message.Content
	o.log.Debug().Str("model", o.model).Int("bytes", len(jpeg)).Str("response", content).Msg("openai answered")
	return ParseResponse(content)
}

func describe(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("status %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return err.Error()
}
