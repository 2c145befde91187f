package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"relic/internal/listing"
	"relic/internal/queue"
	"relic/internal/services/ai"
	"relic/internal/testsupport"
)

func noSleep(context.Context, time.Duration) error { return nil }

func completionBody(content string) string {
	body := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	encoded, _ := json.Marshal(body)
	return string(encoded)
}

const generatedJSON = `{
	"description": "A Victorian sterling silver teapot with hallmarks.",
	"seo_title": "Victorian Sterling Silver Teapot",
	"seo_description": "Antique Victorian sterling teapot with clear hallmarks.",
	"suggested_title": "Victorian Sterling Silver Teapot c.1890",
	"keywords": ["victorian", "silver", "teapot"],
	"recommended_price": 325.0,
	"condition": "Good, minor denting",
	"era": "Victorian",
	"origin": "England",
	"materials": ["sterling silver"]
}`

func testRequest(t *testing.T) ai.Request {
	t.Helper()
	img := filepath.Join(t.TempDir(), "item.jpg")
	testsupport.WriteImage(t, img, 64, 48)
	return ai.Request{Title: "Victorian Teapot", Category: "Collectibles", ImagePaths: []string{img}}
}

func TestGenerateParsesContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sekrit" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(completionBody(generatedJSON)))
	}))
	defer server.Close()

	t.Setenv("RELIC_AI_API_KEY", "sekrit")
	cfg := testsupport.NewConfig(t, testsupport.WithAIBaseURL(server.URL))
	client := ai.NewClient(cfg, ai.WithSleep(noSleep))

	generated, err := client.Generate(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if generated.SuggestedTitle != "Victorian Sterling Silver Teapot c.1890" {
		t.Fatalf("suggested title = %q", generated.SuggestedTitle)
	}
	if generated.RecommendedPrice != 325.0 {
		t.Fatalf("price = %v", generated.RecommendedPrice)
	}
}

func TestGenerateToleratesCodeFences(t *testing.T) {
	fenced := "```json\n" + generatedJSON + "\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(fenced)))
	}))
	defer server.Close()

	t.Setenv("RELIC_AI_API_KEY", "sekrit")
	cfg := testsupport.NewConfig(t, testsupport.WithAIBaseURL(server.URL))
	client := ai.NewClient(cfg, ai.WithSleep(noSleep))

	generated, err := client.Generate(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if generated.Era != "Victorian" {
		t.Fatalf("era = %q", generated.Era)
	}
}

func TestGenerateLimitsImageCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		var doc struct {
			Images []string `json:"images"`
		}
		if err := json.Unmarshal([]byte(payload.Messages[1].Content), &doc); err != nil {
			t.Errorf("decode prompt: %v", err)
		}
		if len(doc.Images) != 2 {
			t.Errorf("images = %d", len(doc.Images))
		}
		w.Write([]byte(completionBody(generatedJSON)))
	}))
	defer server.Close()

	t.Setenv("RELIC_AI_API_KEY", "sekrit")
	cfg := testsupport.NewConfig(t, testsupport.WithAIBaseURL(server.URL))
	cfg.AI.MaxImages = 2
	client := ai.NewClient(cfg, ai.WithSleep(noSleep))

	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		path := filepath.Join(dir, name)
		testsupport.WriteImage(t, path, 32, 32)
		paths = append(paths, path)
	}

	if _, err := client.Generate(context.Background(), ai.Request{Title: "Teapot", Category: "Collectibles", ImagePaths: paths}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestGenerateRetriesWithRetryAfter(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionBody(generatedJSON)))
	}))
	defer server.Close()

	t.Setenv("RELIC_AI_API_KEY", "sekrit")
	cfg := testsupport.NewConfig(t, testsupport.WithAIBaseURL(server.URL))
	client := ai.NewClient(cfg, ai.WithSleep(noSleep))

	if _, err := client.Generate(context.Background(), testRequest(t)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d", attempts)
	}
}

func TestGenerateRequiresKey(t *testing.T) {
	t.Setenv("RELIC_AI_API_KEY", "")
	cfg := testsupport.NewConfig(t)
	client := ai.NewClient(cfg, ai.WithSleep(noSleep))

	if _, err := client.Generate(context.Background(), testRequest(t)); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestBuildPayloadUsesBareRecommendedPrice(t *testing.T) {
	item := &queue.Item{FolderName: "victorian_teapot", SKU: "COLL-2026-0001"}
	generated := &listing.GeneratedContent{
		Description: "A Victorian sterling silver teapot.",
		Recommended: 180,
	}

	payload := ai.BuildPayload(item, generated, "Collectibles")
	if payload.Price != 180 {
		t.Fatalf("price = %v, want 180", payload.Price)
	}

	generated.RecommendedPrice = 90
	if got := ai.BuildPayload(item, generated, "Collectibles").Price; got != 180 {
		t.Fatalf("recommended should win over recommended_price, got %v", got)
	}
}

func TestDecodeModelJSONExtractsEmbeddedObject(t *testing.T) {
	var target struct {
		Description string `json:"description"`
	}
	content := "Here is the listing you asked for:\n{\"description\": \"a teapot\"}\nLet me know if you need more."
	if err := ai.DecodeModelJSON(content, &target); err != nil {
		t.Fatalf("DecodeModelJSON: %v", err)
	}
	if target.Description != "a teapot" {
		t.Fatalf("description = %q", target.Description)
	}
}
