package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/apperr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewGeminiClient(GeminiConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "gemini-1.5-flash",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	return c
}

func candidatesBody(parts ...string) map[string]interface{} {
	ps := make([]map[string]string, len(parts))
	for i, p := range parts {
		ps[i] = map[string]string{"text": p}
	}
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{"parts": ps}},
		},
	}
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiClient(GeminiConfig{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestGenerate_JoinsPartsAndTrims(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q", got)
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "what is the venue?" {
			t.Errorf("prompt = %+v", req.Contents)
		}
		json.NewEncoder(w).Encode(candidatesBody("The venue is ", "Hall B.\n"))
	})

	text, err := c.Generate(context.Background(), "what is the venue?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "The venue is Hall B." {
		t.Errorf("text = %q", text)
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	})

	_, err := c.Generate(context.Background(), "question")
	if err == nil {
		t.Fatal("expected error")
	}
	if apperr.KindOf(err) != apperr.KindExternal {
		t.Errorf("kind = %v", apperr.KindOf(err))
	}
	if apperr.IsRetryable(err) {
		t.Error("empty candidates should not be retryable")
	}
}

func TestGenerate_RateLimitIsRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.Generate(context.Background(), "question")
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.IsRetryable(err) {
		t.Error("429 should be retryable")
	}
}

func TestGenerate_ClientErrorNotRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})

	_, err := c.Generate(context.Background(), "question")
	if err == nil {
		t.Fatal("expected error")
	}
	if apperr.IsRetryable(err) {
		t.Error("403 should not be retryable")
	}
}

func TestGenerate_DeadlineMapsToTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(candidatesBody("late"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, "question")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if apperr.KindOf(err) != apperr.KindTimeout {
		t.Errorf("kind = %v, want timeout", apperr.KindOf(err))
	}
}
