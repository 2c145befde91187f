package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"relic/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "incoming")
	cfgVal.Paths.CompletedDir = filepath.Join(base, "completed")
	cfgVal.Paths.FailedDir = filepath.Join(base, "failed")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Key = "test"
	cfgVal.CDN.PublicKey = "test-public"
	cfgVal.CDN.PrivateKey = "test-private"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithAPIBaseURL points the publish client at a test server.
func WithAPIBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = url
		b.cfg.API.UseProduction = false
	}
}

// WithCDNUploadURL points the CDN client at a test server.
func WithCDNUploadURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.CDN.UploadURL = url
	}
}

// WithAIBaseURL points the listing generation client at a test server.
func WithAIBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AI.BaseURL = url
	}
}

// WithBackgroundRemoval enables background removal on the test config.
func WithBackgroundRemoval(tool string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ImageProcessing.BackgroundRemoval.Enabled = true
		b.cfg.ImageProcessing.BackgroundRemoval.Tool = tool
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WatchDir)
}
