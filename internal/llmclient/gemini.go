package llmclient

import (
	"context"
	"encoding/json"
	"fmt"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client used for
// the "hosted-gateway" backend variant. It only makes the API call; retries,
// rate limiting, and logging are applied one layer up by internal/llm's
// middleware chain. Grounded on internal/llmClient/gemini.go.
type GeminiClient struct {
	cli         *genai.Client
	model       string
	temperature float32
	jsonEnforce bool
}

// NewGeminiClient builds a client against the Gemini API. apiKey is passed
// through GenerateContentConfig-independent client config; the genai SDK
// also honors GOOGLE_API_KEY / GEMINI_API_KEY from the environment when
// apiKey is empty. temperature and jsonEnforce come from LLM_TEMPERATURE and
// LLM_JSON_SCHEMA_ENFORCE (spec.md §6).
func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float32, jsonEnforce bool) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model, temperature: temperature, jsonEnforce: jsonEnforce}, nil
}

func (g *GeminiClient) Name() string { return "gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateJSON asks Gemini for an application/json completion and returns
// the raw text as json.RawMessage. It sets MaxOutputTokens to respect the
// adapter's token cap (spec.md §4.5 defaults to 96).
func (g *GeminiClient) GenerateJSON(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		MaxOutputTokens:   int32(maxTokens),
		Temperature:       &g.temperature,
	}
	if g.jsonEnforce {
		cfg.ResponseMIMEType = "application/json"
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: user}}, Role: "user"}},
		cfg,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &PermanentError{Err: fmt.Errorf("gemini: empty candidate")}
	}
	return json.RawMessage(resp.Candidates[0].Content.Parts[0].Text), nil
}
