package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LocalClient talks to a local llama.cpp/vLLM-style server exposing an
// OpenAI-compatible /v1/chat/completions endpoint with JSON-grammar
// support (the "local-grammar-capable" variant from spec.md §4.5).
// Grounded on original_source/ai-hr/services/dm/main.py's call_local_llm
// and internal/llmClient/groq.go's HTTP shape.
type LocalClient struct {
	http        *http.Client
	baseURL     string
	model       string
	temp        float32
	jsonEnforce bool
}

// NewLocalClient builds a client against baseURL (e.g.
// "http://llm-local:8080/v1"). temp is the sampling temperature; jsonEnforce
// controls whether response_format:json_object is requested, both sourced
// from LLM_TEMPERATURE / LLM_JSON_SCHEMA_ENFORCE (spec.md §6).
func NewLocalClient(baseURL, model string, temp float32, jsonEnforce bool) *LocalClient {
	return &LocalClient{
		http:        &http.Client{Timeout: 60 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temp:        temp,
		jsonEnforce: jsonEnforce,
	}
}

func (c *LocalClient) Name() string { return "local:" + c.model }
func (c *LocalClient) Close() error { return nil }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float32           `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateJSON asks the local server for a JSON-object completion using
// its grammar-constrained response_format.
func (c *LocalClient) GenerateJSON(ctx context.Context, system, user string, maxTokens int) (json.RawMessage, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temp,
		MaxTokens:   maxTokens,
	}
	if c.jsonEnforce {
		reqBody.ResponseFormat = map[string]string{"type": "json_object"}
	}
	return c.post(ctx, reqBody)
}

func (c *LocalClient) post(ctx context.Context, reqBody chatRequest) (json.RawMessage, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("local llm: server error %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return nil, &PermanentError{Err: fmt.Errorf("local llm: client error %d: %s", resp.StatusCode, string(respBody))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &PermanentError{Err: fmt.Errorf("local llm: malformed envelope: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &PermanentError{Err: fmt.Errorf("local llm: empty choices")}
	}
	return json.RawMessage(parsed.Choices[0].Message.Content), nil
}
