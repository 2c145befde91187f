package cdn_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"relic/internal/services"
	"relic/internal/services/cdn"
	"relic/internal/testsupport"
)

func noSleep(context.Context, time.Duration) error { return nil }

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "item.webp")
	testsupport.WriteFile(t, path, 128)
	return path
}

func TestUploadSuccess(t *testing.T) {
	var gotAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		gotAuth = ok && user == "test-private"
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("fileName") != "MILI-2025-0001_1.webp" {
			t.Errorf("fileName = %q", r.FormValue("fileName"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"url":"https://cdn.example/a.webp","thumbnailUrl":"https://cdn.example/t.webp","fileId":"f1"}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCDNUploadURL(server.URL))
	client := cdn.NewClient(cfg, cdn.WithSleep(noSleep))

	uploaded, err := client.Upload(context.Background(), writeSource(t), "MILI-2025-0001_1.webp")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !gotAuth {
		t.Fatal("expected basic auth with private key")
	}
	if uploaded.URL != "https://cdn.example/a.webp" || uploaded.FileID != "f1" {
		t.Fatalf("uploaded = %+v", uploaded)
	}
}

func TestUploadRetriesTransientThenSucceeds(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"success":true,"url":"https://cdn.example/a.webp"}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCDNUploadURL(server.URL))
	client := cdn.NewClient(cfg, cdn.WithSleep(noSleep))

	uploaded, err := client.Upload(context.Background(), writeSource(t), "a.webp")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d", attempts)
	}
	if uploaded.URL == "" {
		t.Fatal("expected URL")
	}
}

func TestUploadDoesNotRetryAuthFailure(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCDNUploadURL(server.URL))
	client := cdn.NewClient(cfg, cdn.WithSleep(noSleep))

	_, err := client.Upload(context.Background(), writeSource(t), "a.webp")
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d", attempts)
	}
	if services.Retryable(err) {
		t.Fatal("auth failure must not be retryable")
	}
}

func TestUploadExhaustsRetries(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCDNUploadURL(server.URL))
	cfg.CDN.RetryCount = 3
	client := cdn.NewClient(cfg, cdn.WithSleep(noSleep))

	_, err := client.Upload(context.Background(), writeSource(t), "a.webp")
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d", attempts)
	}
}

func TestUploadMissingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.CDN.PrivateKey = ""
	client := cdn.NewClient(cfg, cdn.WithSleep(noSleep))

	_, err := client.Upload(context.Background(), writeSource(t), "a.webp")
	if err == nil {
		t.Fatal("expected configuration error")
	}
}
