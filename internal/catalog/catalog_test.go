package catalog_test

import (
	"testing"

	"relic/internal/catalog"
	"relic/internal/testsupport"
)

func TestDetectMatchesKeywordCaseInsensitively(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	detector := catalog.NewDetector(cfg)

	id, category := detector.Detect("WWII German Helmet")
	if id != "militaria" {
		t.Fatalf("id = %s", id)
	}
	if category.Prefix != "MILI" {
		t.Fatalf("prefix = %s", category.Prefix)
	}
}

func TestDetectHonorsConfiguredOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	detector := catalog.NewDetector(cfg)

	// Matches keywords in both categories; militaria is listed first.
	id, _ := detector.Detect("antique military medal")
	if id != "militaria" {
		t.Fatalf("id = %s", id)
	}
}

func TestDetectFallsBackToDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	detector := catalog.NewDetector(cfg)

	id, category := detector.Detect("Mystery Box 42")
	if id != cfg.Categories.Default {
		t.Fatalf("id = %s", id)
	}
	if category.Prefix != "COLL" {
		t.Fatalf("prefix = %s", category.Prefix)
	}
}

func TestDisplayTitle(t *testing.T) {
	cases := map[string]string{
		"victorian_silver_teapot": "Victorian Silver Teapot",
		"WWII-german-helmet":      "WWII German Helmet",
		"  brass   sextant ":      "Brass Sextant",
		"":                        "",
	}
	for input, want := range cases {
		if got := catalog.DisplayTitle(input); got != want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", input, got, want)
		}
	}
}
