package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mementolab/driftwatch/internal/config"
)

func testCfg(url string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:            "test-key",
		BaseURL:           url,
		Model:             "gpt-4o-mini",
		Temperature:       0,
		MaxTokens:         128,
		Timeout:           5 * time.Second,
		RequestsPerMinute: 6000, // 10ms spacing keeps tests fast
		RequestJitter:     0,
		MaxRetries:        5,
		BaseBackoff:       time.Millisecond,
	}
}

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return string(b)
}

func TestIsTransient(t *testing.T) {
	t.Parallel()
	cases := []struct {
		msg  string
		want bool
	}{
		{"api status 429: Too Many Requests", true},
		{"api status 503: upstream overloaded", true},
		{"read tcp: connection reset by peer", true},
		{"context deadline exceeded (Client.Timeout)", true},
		{"api status 400: bad request", false},
		{"llm api key not configured", false},
	}
	for _, tc := range cases {
		if got := IsTransient(errors.New(tc.msg)); got != tc.want {
			t.Fatalf("IsTransient(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
	if IsTransient(nil) {
		t.Fatalf("nil error must not be transient")
	}
}

func TestCompleteRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var arrivals []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		n := len(arrivals)
		mu.Unlock()
		if n <= 2 {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, chatResponse("[]"))
	}))
	defer srv.Close()

	pacer := NewPacer(6000, 0)
	c := NewClient(testCfg(srv.URL), pacer, nil, log.New(io.Discard, "", 0))

	got, err := c.Complete(context.Background(), "sys", "user", nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "[]" {
		t.Fatalf("Complete() = %q", got)
	}
	if len(arrivals) != 3 {
		t.Fatalf("expected exactly 3 requests, got %d", len(arrivals))
	}
	minSpacing := time.Duration(float64(time.Minute) / 6000)
	for i := 1; i < len(arrivals); i++ {
		if gap := arrivals[i].Sub(arrivals[i-1]); gap < minSpacing {
			t.Fatalf("request %d arrived %s after previous, want >= %s", i, gap, minSpacing)
		}
	}
}

func TestCompleteNonTransientFailsImmediately(t *testing.T) {
	t.Parallel()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(testCfg(srv.URL), NewPacer(6000, 0), nil, log.New(io.Discard, "", 0))
	if _, err := c.Complete(context.Background(), "sys", "user", nil); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("non-transient failure must not retry, got %d calls", calls)
	}
}

func TestCompleteMaxRetriesExceeded(t *testing.T) {
	t.Parallel()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := testCfg(srv.URL)
	cfg.MaxRetries = 2
	c := NewClient(cfg, NewPacer(6000, 0), nil, log.New(io.Discard, "", 0))

	_, err := c.Complete(context.Background(), "sys", "user", nil)
	if !errors.Is(err, ErrMaxRetries) {
		t.Fatalf("expected ErrMaxRetries, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected %d attempts, got %d", cfg.MaxRetries, calls)
	}
}

func TestCompleteSendsSchemaConstraint(t *testing.T) {
	t.Parallel()
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, chatResponse("ok"))
	}))
	defer srv.Close()

	c := NewClient(testCfg(srv.URL), NewPacer(6000, 0), nil, log.New(io.Discard, "", 0))
	schema := json.RawMessage(`{"name":"x","schema":{"type":"array"}}`)
	if _, err := c.Complete(context.Background(), "sys", "user", schema); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_schema" {
		t.Fatalf("expected json_schema response_format, got %+v", got.ResponseFormat)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestPacerEnforcesGlobalSpacing(t *testing.T) {
	t.Parallel()
	p := NewPacer(3000, 0) // 20ms spacing
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Wait(ctx); err != nil {
				t.Errorf("Wait: %v", err)
			}
		}()
	}
	wg.Wait()
	// Three waiters share one pacer: the last cannot finish before two full
	// spacing intervals have elapsed.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("concurrent waiters finished in %s, want >= 40ms", elapsed)
	}
}

func TestPacerHonorsCancellation(t *testing.T) {
	t.Parallel()
	p := NewPacer(1, 0) // 60s spacing
	ctx, cancel := context.WithCancel(context.Background())

	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- p.Wait(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not observe cancellation")
	}
}
