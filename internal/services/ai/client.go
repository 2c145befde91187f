// Package ai generates listing copy and pricing guidance for a product by
// sending its photographs and detected category to a JSON-only chat
// completion endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"relic/internal/config"
	"relic/internal/listing"
	"relic/internal/services"
	"relic/internal/services/httpx"
)

const (
	jsonResponseType      = "json_object"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryAttempts  = 3
)

// Client wraps the chat completion API for listing generation.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxImages  int
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleep            func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleep overrides retry sleeps, used by tests to avoid real delays.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient constructs a generation client from configuration. The API key
// comes from the environment, never the config file.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.AI.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	}
	client := &Client{
		apiKey:           strings.TrimSpace(cfg.AIKey()),
		baseURL:          strings.TrimSpace(cfg.AI.BaseURL),
		model:            strings.TrimSpace(cfg.AI.Model),
		maxImages:        cfg.AI.MaxImages,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		sleep:            httpx.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Request carries the product context folded into the generation prompt.
type Request struct {
	Title      string
	Category   string
	ImagePaths []string
}

// Generate produces listing copy for the product. At most max_images
// photographs are attached, base64-encoded inside the prompt payload.
func (c *Client) Generate(ctx context.Context, req Request) (*listing.GeneratedContent, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "generating", "validate config",
			fmt.Sprintf("AI API key missing; set %s", config.AIKeyEnvVar), nil)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "generating", "validate inputs", "product title required", nil)
	}

	userPrompt, err := c.buildUserPrompt(req)
	if err != nil {
		return nil, err
	}
	payload := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	content, err := c.completionWithRetry(ctx, payload)
	if err != nil {
		return nil, err
	}

	var generated listing.GeneratedContent
	if err := DecodeModelJSON(content, &generated); err != nil {
		return nil, services.Wrap(services.ErrValidation, "generating", "parse response",
			"model returned unparseable listing copy", err)
	}
	if strings.TrimSpace(generated.Description) == "" {
		return nil, services.Wrap(services.ErrValidation, "generating", "parse response",
			"model omitted the description", nil)
	}
	return &generated, nil
}

// buildUserPrompt folds the product context and encoded photographs into one
// JSON document the model is asked to describe.
func (c *Client) buildUserPrompt(req Request) (string, error) {
	images := req.ImagePaths
	if c.maxImages > 0 && len(images) > c.maxImages {
		images = images[:c.maxImages]
	}
	encoded := make([]string, 0, len(images))
	for _, path := range images {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", services.Wrap(services.ErrValidation, "generating", "read image",
				fmt.Sprintf("cannot read %s", path), err)
		}
		encoded = append(encoded, base64.StdEncoding.EncodeToString(data))
	}
	doc := map[string]any{
		"title":    strings.TrimSpace(req.Title),
		"category": strings.TrimSpace(req.Category),
		"images":   encoded,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("ai generate: encode prompt: %w", err)
	}
	return string(body), nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		// Some providers return the streaming schema even when stream=false.
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completionWithRetry(ctx context.Context, payload chatCompletionRequest) (string, error) {
	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := c.sendOnce(ctx, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !httpx.Retryable(err) || attempt == attempts {
			break
		}
		delay := httpx.LinearBackoff(c.retryBaseDelay, c.retryMaxDelay, attempt)
		if serverDelay := httpx.RetryAfter(err); serverDelay > 0 {
			delay = serverDelay
			if delay > c.retryMaxDelay {
				delay = c.retryMaxDelay
			}
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", c.classify(lastErr)
}

func (c *Client) sendOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ai request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("ai request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ai request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := httpx.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &httpx.StatusError{
			Op:         "ai request",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("ai request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("ai request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		for _, content := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if trimmed := strings.TrimSpace(content); trimmed != "" {
				return trimmed, nil
			}
		}
	}
	return "", fmt.Errorf("ai request: empty choices")
}

func (c *Client) classify(err error) error {
	if err == nil {
		return services.Wrap(services.ErrTransient, "generating", "complete", "generation failed", nil)
	}
	if services.Marked(err) {
		return err
	}
	var statusErr *httpx.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrAuth, "generating", "complete", "AI endpoint rejected credentials", err)
		case http.StatusBadRequest:
			return services.Wrap(services.ErrValidation, "generating", "complete", "AI endpoint rejected the request", err)
		default:
			return services.Wrap(services.ErrTransient, "generating", "complete", "AI endpoint unavailable", err)
		}
	}
	return services.Wrap(services.ErrTransient, "generating", "complete", "AI request failed", err)
}

// HealthCheck verifies the key and endpoint are configured.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return services.Wrap(services.ErrConfiguration, "generating", "health",
			fmt.Sprintf("AI API key missing; set %s", config.AIKeyEnvVar), nil)
	}
	if c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, "generating", "health", "AI base URL missing", nil)
	}
	return nil
}
