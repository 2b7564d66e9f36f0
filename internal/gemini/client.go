// Package gemini is a minimal client for the generative language API used by
// area prediction. Only the generateContent call is implemented.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini: API key not configured")

// ErrEmptyResponse marks a 2xx response whose body carries no candidate text.
// Callers may escalate with a reduced prompt when they see this.
var ErrEmptyResponse = errors.New("gemini: response contains no candidate text")

// GenerationConfig bounds one generateContent call.
type GenerationConfig struct {
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
}

// Generator produces text for a prompt. Satisfied by *Client; tests swap in
// fakes.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
}

// Client calls the generative language REST API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	httpClient *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg config.GeminiConfig) *Client {
	model := cfg.Model
	// Accept the model with or without the "models/" resource prefix.
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateContent posts the prompt and returns the first candidate's text.
// Transport failures and non-2xx statuses are retried up to the configured
// budget with a short pause between attempts.
func (c *Client) GenerateContent(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-callCtx.Done():
				return "", callCtx.Err()
			case <-time.After(time.Second):
			}
		}

		text, err := c.doRequest(callCtx, url, body)
		if err == nil || errors.Is(err, ErrEmptyResponse) {
			return text, err
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) doRequest(ctx context.Context, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, truncate(string(raw), 500))
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", ErrEmptyResponse
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// SetBaseURL overrides the endpoint; used by tests to point at a fake server.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimSuffix(url, "/")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
