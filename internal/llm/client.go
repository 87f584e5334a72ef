// Package llm wraps the chat-completions API behind rate limiting and
// bounded exponential-backoff retry for transient transport failures.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/mementolab/driftwatch/internal/config"
	"github.com/mementolab/driftwatch/internal/telemetry"
)

// ErrMaxRetries marks a request abandoned after exhausting the retry budget
// on transient failures.
var ErrMaxRetries = errors.New("max retries exceeded")

// transientMarkers are matched case-insensitively against transport error
// text to decide whether a failure is worth retrying.
var transientMarkers = []string{
	"rate", "429", "too many", "overload", "temporarily", "timeout",
	"timed out", "connection reset", "502", "503", "504",
}

// IsTransient reports whether an error looks like a retryable transport
// failure (rate limit, timeout, 5xx, connection reset).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// Client is a chat-completions client with process-wide pacing and retry.
// It implements alignment.Chat.
type Client struct {
	cfg    config.LLMConfig
	http   *http.Client
	pacer  *Pacer
	logger *log.Logger
	tele   *telemetry.Telemetry
}

// NewClient creates a Client. The pacer must be the single process-wide
// instance; telemetry may be nil.
func NewClient(cfg config.LLMConfig, pacer *Pacer, tele *telemetry.Telemetry, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		pacer:  pacer,
		logger: logger,
		tele:   tele,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// Complete issues one logical chat completion: the pacer's spacing applies
// before every wire request, and transient failures are retried with
// exponential backoff plus random jitter up to the configured ceiling.
// Non-transient failures propagate immediately; exhausting the ceiling
// returns an error wrapping ErrMaxRetries.
func (c *Client) Complete(ctx context.Context, system, user string, schema json.RawMessage) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return "", err
		}
		if c.tele != nil {
			c.tele.LLMRequests.Inc()
		}
		content, err := c.send(ctx, system, user, schema)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return "", err
		}
		if c.tele != nil {
			c.tele.LLMRetries.Inc()
		}
		backoff := c.cfg.BaseBackoff*time.Duration(1<<attempt) +
			time.Duration(rand.Float64()*float64(time.Second))
		c.logger.Printf("transient error (attempt %d/%d), backing off %s: %v",
			attempt+1, c.cfg.MaxRetries, backoff.Round(time.Millisecond), err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w: %v", ErrMaxRetries, lastErr)
}

func (c *Client) send(ctx context.Context, system, user string, schema json.RawMessage) (string, error) {
	apiKey := c.cfg.APIKey
	if apiKey == "" {
		return "", errors.New("llm api key not configured")
	}

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if schema != nil {
		body.ResponseFormat = &responseFormat{Type: "json_schema", JSONSchema: schema}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	baseURL := c.cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Keep the status text in the error so transient classification
		// can match 429/5xx responses.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
