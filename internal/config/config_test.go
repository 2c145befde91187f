package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidatesAfterNormalize(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
watch_dir = "` + filepath.Join(dir, "incoming") + `"
completed_dir = "` + filepath.Join(dir, "completed") + `"
failed_dir = "` + filepath.Join(dir, "failed") + `"

[image_processing]
max_dimension = 1600
output_format = "JPEG"

[categories.entries.militaria]
prefix = "mili"
keywords = ["WWII", " Helmet "]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.ImageProcessing.MaxDimension != 1600 {
		t.Fatalf("max_dimension = %d", cfg.ImageProcessing.MaxDimension)
	}
	if cfg.ImageProcessing.OutputFormat != "jpeg" {
		t.Fatalf("output_format not lowercased: %q", cfg.ImageProcessing.OutputFormat)
	}
	cat := cfg.Categories.Entries["militaria"]
	if cat.Prefix != "MILI" {
		t.Fatalf("prefix not uppercased: %q", cat.Prefix)
	}
	if len(cat.Keywords) != 2 || cat.Keywords[0] != "wwii" || cat.Keywords[1] != "helmet" {
		t.Fatalf("keywords not normalized: %v", cat.Keywords)
	}
}

func TestValidateRejectsBadPrefix(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	entry := cfg.Categories.Entries["militaria"]
	entry.Prefix = "TOOLONG"
	cfg.Categories.Entries["militaria"] = entry
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "prefix") {
		t.Fatalf("expected prefix error, got %v", err)
	}
}

func TestValidateRejectsUnknownDefaultCategory(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg.Categories.Default = "automobilia"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown default category")
	}
}

func TestCategoryOrderIsDeterministic(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg.Categories.Entries["bronzes"] = Category{Prefix: "BRNZ"}
	order := cfg.CategoryOrder()
	if len(order) != 3 {
		t.Fatalf("order = %v", order)
	}
	if order[0] != "militaria" || order[1] != "collectibles" {
		t.Fatalf("configured order not honored: %v", order)
	}
	if order[2] != "bronzes" {
		t.Fatalf("unlisted ids should follow lexically: %v", order)
	}
}

func TestPublishURLHonorsProductionFlag(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "https://staging.example.com/api"
	cfg.API.ProductionURL = "https://www.example.com/api"
	if got := cfg.PublishURL(); got != cfg.API.BaseURL {
		t.Fatalf("expected staging url, got %s", got)
	}
	cfg.API.UseProduction = true
	if got := cfg.PublishURL(); got != cfg.API.ProductionURL {
		t.Fatalf("expected production url, got %s", got)
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config should load: exists=%v err=%v", exists, err)
	}
}
