package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anime-shed/misinfo-inspector-go/internal/logger"
	"github.com/anime-shed/misinfo-inspector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// NoValidResponse is the analysis text used when the API answers without choices.
const NoValidResponse = "No valid response from API."

// Analyzer sends a prompt to the analysis API and returns the model's reply
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// Options configures the chat-completion client
type Options struct {
	URL    string
	APIKey string
	Model  string
	Store  bool
	// Timeout of zero leaves the call bounded only by ctx.
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible chat-completion endpoint
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a chat-completion client. Requests are sent once; there is
// no retry on failure.
func NewClient(opts Options) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// Analyze posts prompt as a single user message. A response without choices
// is not an error: it yields NoValidResponse. The HTTP status is not checked;
// an error body simply carries no choices.
func (c *Client) Analyze(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(models.ChatRequest{
		Model: c.opts.Model,
		Store: c.opts.Store,
		Messages: []models.ChatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
		"response":    string(body),
	}).Debug("Full API response")

	if resp.StatusCode != http.StatusOK {
		logger.WithField("status", resp.StatusCode).Warn("Analysis API returned non-200 status")
	}

	// A top-level array has no "choices" member and falls back like any
	// other response without choices.
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed) {
		return NoValidResponse, nil
	}

	var parsed models.ChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return NoValidResponse, nil
	}
	if string(parsed.Choices) == "null" {
		return "", errors.New("decode response: choices is null")
	}

	var choices []models.ChatChoice
	if err := json.Unmarshal(parsed.Choices, &choices); err != nil {
		return "", fmt.Errorf("decode choices: %w", err)
	}
	if len(choices) == 0 {
		return NoValidResponse, nil
	}

	first := choices[0]
	if first.Message == nil || first.Message.Content == nil {
		return "", errors.New("decode response: first choice has no message content")
	}
	return *first.Message.Content, nil
}
