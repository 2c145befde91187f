package listing_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"relic/internal/listing"
)

func TestWriteAuditUsesSKUFileName(t *testing.T) {
	dir := t.TempDir()
	record := &listing.AuditRecord{
		SKU:      "MILI-2025-0007",
		Category: "militaria",
		ProductData: &listing.ProductPayload{
			Title: "WWII Helmet",
			SKU:   "MILI-2025-0007",
			Price: 249.99,
		},
		UploadedImages: []listing.UploadedImage{{URL: "https://cdn.example/a.webp"}},
		ProcessedAt:    time.Now().UTC(),
		Status:         "published",
	}

	path, err := listing.WriteAudit(dir, record)
	if err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}
	if filepath.Base(path) != "MILI-2025-0007_product.json" {
		t.Fatalf("path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	for _, key := range []string{"sku", "category", "product_data", "uploaded_images", "processed_at", "status"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("audit missing key %q", key)
		}
	}
}

func TestWriteAuditWithoutSKU(t *testing.T) {
	dir := t.TempDir()
	record := &listing.AuditRecord{
		Category:    "collectibles",
		ProcessedAt: time.Now().UTC(),
		Status:      "failed",
		Error:       "no images found",
	}

	path, err := listing.WriteAudit(dir, record)
	if err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}
	if filepath.Base(path) != "unassigned_product.json" {
		t.Fatalf("path = %s", path)
	}
}
