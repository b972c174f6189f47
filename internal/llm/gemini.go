// Package llm provides the generative-model client used to answer questions.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/apperr"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient generates free text through the Gemini generateContent API.
type GeminiClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	BaseURL     string // defaults to the public Gemini endpoint
	APIKey      string
	Model       string // e.g. "gemini-1.5-flash"
	Temperature float64
	Timeout     time.Duration
}

// NewGeminiClient creates a client for the given model and key.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini client: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &GeminiClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Generate sends the assembled prompt and returns the model's text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature": c.temperature,
		},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "marshal generate request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "build generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperr.Wrap(apperr.KindTimeout, "generation call exceeded budget", err)
		}
		return "", apperr.External("generation request failed", true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", apperr.External(
			fmt.Sprintf("generation provider returned %d: %s", resp.StatusCode, string(respBody)),
			retryable, nil)
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.External("decode generation response", false, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", apperr.External("generation returned no candidates", false, nil)
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), nil
}
