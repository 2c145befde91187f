package identification_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relic/internal/identification"
	"relic/internal/queue"
	"relic/internal/sku"
	"relic/internal/testsupport"
)

func TestExecuteIdentifiesFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	folder := testsupport.WriteProductFolder(t, cfg.Paths.WatchDir, "WWII German Helmet", "front.jpg", "back.jpg")
	item := testsupport.NewFolder(t, store, folder)

	identifier := identification.NewIdentifier(cfg, sku.NewAllocator(cfg, nil), nil)
	if err := identifier.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := identifier.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.CategoryID != "militaria" {
		t.Fatalf("category = %s", item.CategoryID)
	}
	if !strings.HasPrefix(item.SKU, "MILI-") {
		t.Fatalf("sku = %s", item.SKU)
	}
	if got := item.Images(); len(got) != 2 {
		t.Fatalf("images = %v", got)
	}
	if item.Status != queue.StatusDetected {
		t.Fatalf("status = %s", item.Status)
	}
}

func TestExecuteFailsOnEmptyFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	folder := filepath.Join(cfg.Paths.WatchDir, "Empty Box")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	item := testsupport.NewFolder(t, store, folder)

	identifier := identification.NewIdentifier(cfg, sku.NewAllocator(cfg, nil), nil)
	if err := identifier.Execute(context.Background(), item); err == nil {
		t.Fatal("expected error for folder without images")
	}
}

func TestListImagesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteImage(t, filepath.Join(dir, "b.jpg"), 32, 32)
	testsupport.WriteImage(t, filepath.Join(dir, "a.png"), 32, 32)
	testsupport.WriteImage(t, filepath.Join(dir, ".hidden.jpg"), 32, 32)
	testsupport.WriteImage(t, filepath.Join(dir, "a_processed.jpg"), 32, 32)
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 8)
	testsupport.WriteImage(t, filepath.Join(dir, "processed", "old.jpg"), 32, 32)

	images, err := identification.ListImages(dir)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	want := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.jpg")}
	if len(images) != len(want) {
		t.Fatalf("images = %v", images)
	}
	for i := range want {
		if images[i] != want[i] {
			t.Fatalf("images[%d] = %s, want %s", i, images[i], want[i])
		}
	}
}

func TestIsCandidateFolder(t *testing.T) {
	base := t.TempDir()

	with := filepath.Join(base, "Brass Sextant")
	testsupport.WriteImage(t, filepath.Join(with, "a.jpg"), 32, 32)
	if !identification.IsCandidateFolder(with) {
		t.Fatal("expected candidate")
	}

	hidden := filepath.Join(base, ".staging")
	testsupport.WriteImage(t, filepath.Join(hidden, "a.jpg"), 32, 32)
	if identification.IsCandidateFolder(hidden) {
		t.Fatal("hidden folder must not be a candidate")
	}

	empty := filepath.Join(base, "Receipts")
	testsupport.WriteFile(t, filepath.Join(empty, "notes.txt"), 8)
	if identification.IsCandidateFolder(empty) {
		t.Fatal("folder without images must not be a candidate")
	}
}
