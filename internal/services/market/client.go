// Package market submits finished product payloads to the marketplace
// publish API.
package market

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

	"relic/internal/config"
	"relic/internal/listing"
	"relic/internal/services"
	"relic/internal/services/httpx"
)

const (
	defaultTimeout   = 30 * time.Second
	retryBaseDelay   = time.Second
	retryMaxDelay    = 15 * time.Second
	defaultRetryRuns = 3
)

// Client talks to the marketplace product API using header API-key auth.
type Client struct {
	baseURL    string
	apiKey     string
	retryCount int
	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
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

// WithSleep overrides retry sleeps, used by tests to avoid real delays.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient builds a publish client from configuration. The base URL honors
// the production toggle.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.API.Timeout > 0 {
		timeout = time.Duration(cfg.API.Timeout) * time.Second
	}
	retries := cfg.API.RetryCount
	if retries <= 0 {
		retries = defaultRetryRuns
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.PublishURL()), "/"),
		apiKey:     strings.TrimSpace(cfg.API.Key),
		retryCount: retries,
		httpClient: &http.Client{Timeout: timeout},
		sleep:      httpx.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type publishResponse struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Publish submits the payload and returns the created listing's identity.
// 201 is success; 400, 401, and 409 surface immediately as validation, auth,
// and duplicate errors; transient statuses retry with linear backoff.
func (c *Client) Publish(ctx context.Context, payload *listing.ProductPayload) (*listing.PublishResult, error) {
	if payload == nil {
		return nil, services.Wrap(services.ErrValidation, "publishing", "validate inputs", "nil payload", nil)
	}
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publishing", "validate config", "API key missing", nil)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryCount; attempt++ {
		result, err := c.publishOnce(ctx, payload)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !httpx.Retryable(err) || attempt == c.retryCount {
			break
		}
		delay := httpx.LinearBackoff(retryBaseDelay, retryMaxDelay, attempt)
		if serverDelay := httpx.RetryAfter(err); serverDelay > 0 {
			delay = serverDelay
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, c.classify(lastErr)
}

func (c *Client) publishOnce(ctx context.Context, payload *listing.ProductPayload) (*listing.PublishResult, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("publish: encode payload: %w", err)
	}
	endpoint := c.baseURL + "/products"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("publish: new request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("publish: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("publish: read body: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		retryAfter, _ := httpx.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpx.StatusError{
			Op:         "publish",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var decoded publishResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("publish: decode response: %w", err)
		}
	}
	return &listing.PublishResult{
		ListingID:  decoded.ID,
		ListingURL: decoded.URL,
		Created:    resp.StatusCode == http.StatusCreated,
	}, nil
}

func (c *Client) classify(err error) error {
	if err == nil {
		return services.Wrap(services.ErrTransient, "publishing", "publish", "publish failed", nil)
	}
	if services.Marked(err) {
		return err
	}
	var statusErr *httpx.StatusError
	if errors.As(err, &statusErr) {
		detail := strings.TrimSpace(statusErr.Body)
		switch statusErr.StatusCode {
		case http.StatusBadRequest:
			return services.Wrap(services.ErrValidation, "publishing", "publish",
				firstNonEmpty(detail, "marketplace rejected the payload"), err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrAuth, "publishing", "publish", "marketplace rejected credentials", err)
		case http.StatusConflict:
			return services.Wrap(services.ErrDuplicate, "publishing", "publish",
				firstNonEmpty(detail, "listing already exists"), err)
		default:
			return services.Wrap(services.ErrTransient, "publishing", "publish", "marketplace unavailable", err)
		}
	}
	return services.Wrap(services.ErrTransient, "publishing", "publish", "publish request failed", err)
}

// HealthCheck pings the API root to verify the endpoint is reachable. Any
// HTTP response counts as reachable; only transport failures are unhealthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, "publishing", "health", "publish URL missing", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("publish health: new request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publishing", "health", "publish endpoint unreachable", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
