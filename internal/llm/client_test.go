package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seifer44/lexigraph/internal/platform/logger"
)

func newTestClient(endpoint string, maxRetries int) *Client {
	return NewClient(Options{
		Endpoint:   endpoint,
		Model:      "test-model",
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
	}, logger.NewNop())
}

func TestGenerateSendsOllamaRequest(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "generated text"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1)
	text, err := c.Generate(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "generated text" {
		t.Fatalf("text = %q", text)
	}
	if got.Model != "test-model" || got.Prompt != "the prompt" {
		t.Fatalf("request = %+v", got)
	}
	if got.Stream {
		t.Fatal("stream must be false")
	}
}

func TestGenerateRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	text, err := c.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate after retry: %v", err)
	}
	if text != "ok" {
		t.Fatalf("text = %q", text)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	if _, err := c.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestGenerateHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(srv.URL, 5)
	if _, err := c.Generate(ctx, "p"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	c := newTestClient(srv.URL, 1)
	if !c.Available(context.Background()) {
		t.Fatal("expected available endpoint")
	}

	srv.Close()
	if c.Available(context.Background()) {
		t.Fatal("expected unavailable after server shutdown")
	}
}
