// Package airtable writes completed leads to an Airtable table over its REST
// API. The sink is best effort: callers archive the lead locally regardless of
// what happens here.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// DefaultFieldMapping maps profile field names to Airtable column names.
// "summary" is a pseudo-field carrying the generated summary text.
func DefaultFieldMapping() map[string]string {
	return map[string]string{
		"name":    "Name",
		"email":   "Email",
		"mobile":  "Mobile",
		"age":     "Age",
		"city":    "City",
		"summary": "Summary",
	}
}

// ParseFieldMapping decodes a JSON field mapping override, falling back to the
// default when raw is empty.
func ParseFieldMapping(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultFieldMapping(), nil
	}
	mapping := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, fmt.Errorf("parse field mapping: %w", err)
	}
	return mapping, nil
}

type Client struct {
	baseURL    string
	apiKey     string
	baseID     string
	table      string
	mapping    map[string]string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(apiKey, baseID, table string, mapping map[string]string, executor *resilience.Executor) *Client {
	if len(mapping) == 0 {
		mapping = DefaultFieldMapping()
	}
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		baseID:     baseID,
		table:      table,
		mapping:    mapping,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

// WithBaseURL points the client at a different API root. Used by tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

func (c *Client) Configured() bool {
	return c.apiKey != "" && c.baseID != ""
}

type record struct {
	Fields map[string]string `json:"fields"`
}

type recordPayload struct {
	Records []record `json:"records"`
}

func (c *Client) CreateRecord(ctx context.Context, profile domain.Profile, summary string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("airtable sink is not configured")
	}

	fields := map[string]string{}
	for local, column := range c.mapping {
		if local == "summary" {
			if summary != "" {
				fields[column] = summary
			}
			continue
		}
		value := profile[local]
		if value == "" || value == domain.SkippedValue {
			continue
		}
		fields[column] = value
	}

	payload := recordPayload{Records: []record{{Fields: fields}}}

	var recordID string
	call := func(ctx context.Context) error {
		var err error
		recordID, err = c.postRecord(ctx, payload)
		return err
	}
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "airtable.create_record", call, classifyAirtableError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}
	return recordID, nil
}

func (c *Client) postRecord(ctx context.Context, payload recordPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, c.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create record request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("airtable request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var response struct {
		Records []struct {
			ID string `json:"id"`
		} `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode record response: %w", err)
	}
	if len(response.Records) == 0 {
		return "", fmt.Errorf("airtable returned no records")
	}
	return response.Records[0].ID, nil
}
