package sku_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"relic/internal/sku"
	"relic/internal/testsupport"
)

func fixedClock() time.Time {
	return time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
}

func TestGenerateSequence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	alloc := sku.NewAllocator(cfg, nil, sku.WithClock(fixedClock))
	ctx := context.Background()

	want := []string{"MILI-2025-0001", "MILI-2025-0002", "MILI-2025-0003"}
	for _, expected := range want {
		got, err := alloc.Generate(ctx, "MILI", 2025)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if got != expected {
			t.Fatalf("Generate = %s, want %s", got, expected)
		}
	}
}

func TestGenerateSeparatesPrefixesAndYears(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	alloc := sku.NewAllocator(cfg, nil, sku.WithClock(fixedClock))
	ctx := context.Background()

	if got, _ := alloc.Generate(ctx, "MILI", 2025); got != "MILI-2025-0001" {
		t.Fatalf("got %s", got)
	}
	if got, _ := alloc.Generate(ctx, "COLL", 2025); got != "COLL-2025-0001" {
		t.Fatalf("got %s", got)
	}
	if got, _ := alloc.Generate(ctx, "MILI", 2024); got != "MILI-2024-0001" {
		t.Fatalf("got %s", got)
	}
	if got, _ := alloc.Generate(ctx, "MILI", 2025); got != "MILI-2025-0002" {
		t.Fatalf("got %s", got)
	}
}

func TestGenerateDefaultsYearFromClock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	alloc := sku.NewAllocator(cfg, nil, sku.WithClock(fixedClock))

	got, err := alloc.Generate(context.Background(), "mili", 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "MILI-2025-0001" {
		t.Fatalf("Generate = %s", got)
	}
}

func TestPeekNextDoesNotMutate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	alloc := sku.NewAllocator(cfg, nil, sku.WithClock(fixedClock))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := alloc.PeekNext(ctx, "COLL", 2025)
		if err != nil {
			t.Fatalf("PeekNext: %v", err)
		}
		if got != "COLL-2025-0001" {
			t.Fatalf("PeekNext = %s", got)
		}
	}
	if got, _ := alloc.Generate(ctx, "COLL", 2025); got != "COLL-2025-0001" {
		t.Fatalf("Generate after peeks = %s", got)
	}
}

func TestGenerateRejectsBadPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	alloc := sku.NewAllocator(cfg, nil)

	for _, prefix := range []string{"", "AB", "TOOLONG", "M1L"} {
		if _, err := alloc.Generate(context.Background(), prefix, 2025); err == nil {
			t.Fatalf("expected error for prefix %q", prefix)
		}
	}
}

func TestGenerateWidensPastFourDigits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	statePath := filepath.Join(cfg.Paths.DataDir, "sku_state.json")
	seed := map[string]any{
		"last_updated": time.Now().UTC().Format(time.RFC3339),
		"counters":     map[string]map[string]int{"MILI": {"2025": 9999}},
	}
	data, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	if err := os.WriteFile(statePath, data, 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	alloc := sku.NewAllocator(cfg, nil, sku.WithClock(fixedClock))
	got, err := alloc.Generate(context.Background(), "MILI", 2025)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "MILI-2025-10000" {
		t.Fatalf("Generate = %s", got)
	}
}

func TestSyncFromScanRaisesCounter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	alloc := sku.NewAllocator(cfg, nil, sku.WithClock(fixedClock))
	ctx := context.Background()

	if err := alloc.SyncFromScan(ctx, "MILI", 2025, 41); err != nil {
		t.Fatalf("SyncFromScan: %v", err)
	}
	if got, _ := alloc.Generate(ctx, "MILI", 2025); got != "MILI-2025-0042" {
		t.Fatalf("Generate = %s", got)
	}

	// A lower scan result never rolls the counter back.
	if err := alloc.SyncFromScan(ctx, "MILI", 2025, 5); err != nil {
		t.Fatalf("SyncFromScan: %v", err)
	}
	if got, _ := alloc.Generate(ctx, "MILI", 2025); got != "MILI-2025-0043" {
		t.Fatalf("Generate = %s", got)
	}
}

func TestGenerateSurvivesCorruptState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	statePath := filepath.Join(cfg.Paths.DataDir, "sku_state.json")
	if err := os.WriteFile(statePath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt state: %v", err)
	}

	alloc := sku.NewAllocator(cfg, nil, sku.WithClock(fixedClock))
	got, err := alloc.Generate(context.Background(), "MILI", 2025)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "MILI-2025-0001" {
		t.Fatalf("Generate = %s", got)
	}
}

func TestValidate(t *testing.T) {
	valid := []string{"MILI-2025-0001", "coll-2024-9999", " MILI-2025-0001 ", "ABCD-2025-0042"}
	for _, candidate := range valid {
		if !sku.Validate(candidate) {
			t.Errorf("Validate(%q) = false", candidate)
		}
	}
	invalid := []string{"", "MILI-2025", "MI-2025-0001", "MILI-25-0001", "MILI-2025-001", "MILI_2025_0001"}
	for _, candidate := range invalid {
		if sku.Validate(candidate) {
			t.Errorf("Validate(%q) = true", candidate)
		}
	}
}

func TestScannerFindsHighestSequence(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"MILI-2025-0001_product.json",
		"MILI-2025-0017_product.json",
		"MILI-2024-0099_product.json",
		"COLL-2025-0500_product.json",
		"notes.txt",
	} {
		testsupport.WriteFile(t, filepath.Join(dir, name), 8)
	}

	scanner := sku.NewScanner(dir, filepath.Join(dir, "missing"))
	got, err := scanner.LastUsed("MILI", 2025)
	if err != nil {
		t.Fatalf("LastUsed: %v", err)
	}
	if got != 17 {
		t.Fatalf("LastUsed = %d", got)
	}

	if got, err := scanner.LastUsed("MILI", 2023); err != nil || got != 0 {
		t.Fatalf("LastUsed(2023) = %d, %v", got, err)
	}
}
