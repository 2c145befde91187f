// Package cdn uploads optimized product images to the asset CDN's upload
// API and returns their public URLs.
package cdn

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"relic/internal/config"
	"relic/internal/listing"
	"relic/internal/services"
	"relic/internal/services/httpx"
)

const (
	defaultTimeout   = 60 * time.Second
	retryBaseDelay   = time.Second
	retryMaxDelay    = 15 * time.Second
	defaultRetryRuns = 3
)

// Client talks to the CDN upload endpoint using private-key basic auth.
type Client struct {
	uploadURL  string
	privateKey string
	folder     string
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

// NewClient builds a CDN client from configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.CDN.Timeout > 0 {
		timeout = time.Duration(cfg.CDN.Timeout) * time.Second
	}
	retries := cfg.CDN.RetryCount
	if retries <= 0 {
		retries = defaultRetryRuns
	}
	client := &Client{
		uploadURL:  strings.TrimSpace(cfg.CDN.UploadURL),
		privateKey: strings.TrimSpace(cfg.CDN.PrivateKey),
		folder:     strings.TrimSpace(cfg.CDN.Folder),
		retryCount: retries,
		httpClient: &http.Client{Timeout: timeout},
		sleep:      httpx.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type uploadResponse struct {
	Success      bool   `json:"success"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	FileID       string `json:"fileId"`
	Message      string `json:"message"`
}

// Upload sends the file at path under the given public name and returns the
// CDN's record. Transient failures are retried with linear backoff up to the
// configured retry count; auth and validation responses surface immediately.
func (c *Client) Upload(ctx context.Context, path, name string) (*listing.UploadedImage, error) {
	if c.privateKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "uploading", "validate config", "CDN private key missing", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "uploading", "read file", fmt.Sprintf("cannot read %s", filepath.Base(path)), err)
	}
	if name == "" {
		name = filepath.Base(path)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryCount; attempt++ {
		uploaded, err := c.uploadOnce(ctx, data, name)
		if err == nil {
			return uploaded, nil
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

func (c *Client) uploadOnce(ctx context.Context, data []byte, name string) (*listing.UploadedImage, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := map[string]string{
		"file":              base64.StdEncoding.EncodeToString(data),
		"fileName":          name,
		"folder":            c.folder,
		"overwriteFile":     "true",
		"useUniqueFileName": "false",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("cdn upload: encode form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("cdn upload: finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return nil, fmt.Errorf("cdn upload: new request: %w", err)
	}
	req.SetBasicAuth(c.privateKey, "")
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cdn upload: http error: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cdn upload: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := httpx.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpx.StatusError{
			Op:         "cdn upload",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
			RetryAfter: retryAfter,
		}
	}

	var decoded uploadResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("cdn upload: decode response: %w", err)
	}
	if !decoded.Success || decoded.URL == "" {
		message := strings.TrimSpace(decoded.Message)
		if message == "" {
			message = "upload rejected"
		}
		return nil, services.Wrap(services.ErrTransient, "uploading", "upload", message, nil)
	}
	return &listing.UploadedImage{
		URL:          decoded.URL,
		ThumbnailURL: decoded.ThumbnailURL,
		FileID:       decoded.FileID,
		Name:         name,
	}, nil
}

// classify translates raw transport errors into the service error taxonomy.
func (c *Client) classify(err error) error {
	if err == nil {
		return services.Wrap(services.ErrTransient, "uploading", "upload", "upload failed", nil)
	}
	if services.Marked(err) {
		return err
	}
	var statusErr *httpx.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrAuth, "uploading", "upload", "CDN rejected credentials", err)
		case http.StatusBadRequest:
			return services.Wrap(services.ErrValidation, "uploading", "upload", "CDN rejected the file", err)
		default:
			return services.Wrap(services.ErrTransient, "uploading", "upload", "CDN unavailable", err)
		}
	}
	return services.Wrap(services.ErrTransient, "uploading", "upload", "CDN request failed", err)
}

// HealthCheck verifies credentials are configured and the endpoint resolves.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.privateKey == "" {
		return services.Wrap(services.ErrConfiguration, "uploading", "health", "CDN private key missing", nil)
	}
	if c.uploadURL == "" {
		return services.Wrap(services.ErrConfiguration, "uploading", "health", "CDN upload URL missing", nil)
	}
	return nil
}
