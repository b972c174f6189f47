package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hyperjump/kotae/internal/apperr"
	"github.com/hyperjump/kotae/pkg/utils"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiEmbedder embeds text through the Gemini embedContent API.
// Returned vectors are normalized to unit length so inner product equals
// cosine similarity.
type GeminiEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

// GeminiEmbedderConfig configures a GeminiEmbedder.
type GeminiEmbedderConfig struct {
	BaseURL    string // defaults to the public Gemini endpoint
	APIKey     string
	Model      string // e.g. "embedding-001"
	Dimensions int
	Timeout    time.Duration // per-request HTTP timeout; callers also pass ctx deadlines
}

// NewGeminiEmbedder creates an embedder for the given model and key.
func NewGeminiEmbedder(cfg GeminiEmbedderConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini embedder: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = "embedding-001"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 768
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GeminiEmbedder{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type embedRequest struct {
	Model   string        `json:"model,omitempty"`
	Content geminiContent `json:"content"`
}

// Embed returns the embedding for one text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	endpoint := fmt.Sprintf("%s/models/%s:embedContent?key=%s", e.baseURL, e.model, url.QueryEscape(e.apiKey))
	body := embedRequest{Content: geminiContent{Parts: []geminiPart{{Text: text}}}}
	var out struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := e.post(ctx, endpoint, body, &out); err != nil {
		return nil, err
	}
	return e.normalize(out.Embedding.Values)
}

// EmbedBatch embeds texts in one batchEmbedContents call.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", e.baseURL, e.model, url.QueryEscape(e.apiKey))
	reqs := make([]embedRequest, len(texts))
	for i, t := range texts {
		reqs[i] = embedRequest{
			Model:   "models/" + e.model,
			Content: geminiContent{Parts: []geminiPart{{Text: t}}},
		}
	}
	var out struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	if err := e.post(ctx, endpoint, map[string]interface{}{"requests": reqs}, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, apperr.External(
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d embeddings", len(texts), len(out.Embeddings)),
			false, nil)
	}
	embeddings := make([][]float32, len(texts))
	for i, emb := range out.Embeddings {
		vec, err := e.normalize(emb.Values)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (e *GeminiEmbedder) post(ctx context.Context, endpoint string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal embed request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return apperr.Wrap(apperr.KindTimeout, "embedding call exceeded budget", err)
		}
		return apperr.External("embedding request failed", true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return apperr.External(
			fmt.Sprintf("embedding provider returned %d: %s", resp.StatusCode, string(respBody)),
			retryable, nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.External("decode embedding response", false, err)
	}
	return nil
}

// normalize validates the dimension and scales the vector to unit length.
func (e *GeminiEmbedder) normalize(vec []float32) ([]float32, error) {
	if len(vec) != e.dimensions {
		return nil, apperr.External(
			fmt.Sprintf("embedding dimension mismatch: got %d, expected %d", len(vec), e.dimensions),
			false, nil)
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for the remote embedder.
func (e *GeminiEmbedder) Close() error {
	return nil
}
