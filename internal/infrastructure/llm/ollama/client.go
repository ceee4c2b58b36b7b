package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

// Extractor asks the model for (field, value) candidates in strict JSON.
// When the model call fails, the configured fallback extractor answers instead,
// so conversations keep moving while the backend is down.
type Extractor struct {
	client   *Client
	fields   []string
	fallback ports.FieldExtractor
}

func NewExtractor(client *Client, fields []string, fallback ports.FieldExtractor) *Extractor {
	return &Extractor{client: client, fields: fields, fallback: fallback}
}

func (e *Extractor) Extract(ctx context.Context, text, pendingField string, known domain.Profile) (map[string]string, error) {
	respText, err := e.client.generateJSON(ctx, "extract", buildExtractionPrompt(text, pendingField, e.fields, known))
	if err != nil {
		if e.fallback != nil {
			return e.fallback.Extract(ctx, text, pendingField, known)
		}
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &raw); err != nil {
		if e.fallback != nil {
			return e.fallback.Extract(ctx, text, pendingField, known)
		}
		return nil, fmt.Errorf("parse extraction json: %w", err)
	}

	out := make(map[string]string, len(raw))
	for key, value := range raw {
		s, ok := value.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(key))] = s
	}
	return out, nil
}

// Summarizer produces the lead summary prose.
type Summarizer struct {
	client *Client
}

func NewSummarizer(client *Client) *Summarizer {
	return &Summarizer{client: client}
}

func (s *Summarizer) GenerateSummary(ctx context.Context, profile domain.Profile) (string, error) {
	return s.client.generateText(ctx, "summary", buildSummaryPrompt(profile))
}

func (c *Client) generateJSON(ctx context.Context, operation, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, operation, reqBody)
}

func (c *Client) generateText(ctx context.Context, operation, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, operation, reqBody)
}

func (c *Client) generate(ctx context.Context, operation string, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama "+operation, err)
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
