package optimizer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"relic/internal/optimizer"
	"relic/internal/testsupport"
)

func TestProcessResizesLongEdge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.ImageProcessing.MaxDimension = 800
	cfg.ImageProcessing.OutputFormat = "jpg"
	cfg.ImageProcessing.DeleteOriginals = false

	dir := t.TempDir()
	src := filepath.Join(dir, "teapot.jpg")
	testsupport.WriteImage(t, src, 1600, 1200)

	opt := optimizer.New(cfg, nil)
	result, err := opt.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Width != 800 || result.Height != 600 {
		t.Fatalf("dimensions = %dx%d", result.Width, result.Height)
	}
	if result.OriginalWidth != 1600 || result.OriginalHeight != 1200 {
		t.Fatalf("original dimensions = %dx%d", result.OriginalWidth, result.OriginalHeight)
	}

	img, err := imaging.Open(result.OutputPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
		t.Fatalf("encoded dimensions = %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestProcessPortraitOrientation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.ImageProcessing.MaxDimension = 900
	cfg.ImageProcessing.OutputFormat = "png"
	cfg.ImageProcessing.DeleteOriginals = false

	dir := t.TempDir()
	src := filepath.Join(dir, "portrait.png")
	testsupport.WriteImage(t, src, 600, 1800)

	opt := optimizer.New(cfg, nil)
	result, err := opt.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Height != 900 {
		t.Fatalf("height = %d", result.Height)
	}
	if result.Width != 300 {
		t.Fatalf("width = %d", result.Width)
	}
}

func TestProcessKeepsSmallImages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.ImageProcessing.OutputFormat = "jpg"
	cfg.ImageProcessing.DeleteOriginals = false

	dir := t.TempDir()
	src := filepath.Join(dir, "small.jpg")
	testsupport.WriteImage(t, src, 640, 480)

	opt := optimizer.New(cfg, nil)
	result, err := opt.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Width != 640 || result.Height != 480 {
		t.Fatalf("dimensions = %dx%d", result.Width, result.Height)
	}
}

func TestProcessWritesToProcessedDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.ImageProcessing.OutputFormat = "jpg"
	cfg.ImageProcessing.DeleteOriginals = false

	dir := t.TempDir()
	src := filepath.Join(dir, "item.jpg")
	testsupport.WriteImage(t, src, 400, 300)

	opt := optimizer.New(cfg, nil)
	result, err := opt.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	wantDir := filepath.Join(dir, "processed")
	if filepath.Dir(result.OutputPath) != wantDir {
		t.Fatalf("output dir = %s", filepath.Dir(result.OutputPath))
	}
	if result.ThumbnailPath == "" {
		t.Fatal("expected thumbnail path")
	}
	if _, err := os.Stat(result.ThumbnailPath); err != nil {
		t.Fatalf("thumbnail missing: %v", err)
	}
}

func TestProcessDeletesOriginal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.ImageProcessing.OutputFormat = "jpg"
	cfg.ImageProcessing.DeleteOriginals = true

	dir := t.TempDir()
	src := filepath.Join(dir, "item.jpg")
	testsupport.WriteImage(t, src, 400, 300)

	opt := optimizer.New(cfg, nil)
	result, err := opt.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.OriginalDeleted {
		t.Fatal("expected original deleted")
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("original still present: %v", err)
	}
}

func TestProcessMovesOriginalToKeepDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	keep := filepath.Join(t.TempDir(), "originals")
	cfg.ImageProcessing.OutputFormat = "jpg"
	cfg.ImageProcessing.DeleteOriginals = true
	cfg.ImageProcessing.KeepOriginalsDir = keep

	dir := t.TempDir()
	src := filepath.Join(dir, "item.jpg")
	testsupport.WriteImage(t, src, 400, 300)

	opt := optimizer.New(cfg, nil)
	result, err := opt.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.OriginalDeleted {
		t.Fatal("expected original moved")
	}
	if _, err := os.Stat(filepath.Join(keep, "item.jpg")); err != nil {
		t.Fatalf("kept original missing: %v", err)
	}
}

// writeJPEGWithEXIF splices an Exif APP1 segment into a plain encoded JPEG
// right after the SOI marker.
func writeJPEGWithEXIF(t *testing.T, path string) {
	t.Helper()
	testsupport.WriteImage(t, path, 400, 300)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read encoded jpeg: %v", err)
	}
	payload := []byte("Exif\x00\x00MM\x00*\x00\x00\x00\x08")
	segment := append([]byte{0xFF, 0xE1, byte((len(payload) + 2) >> 8), byte(len(payload) + 2)}, payload...)
	spliced := append(append(append([]byte{}, raw[:2]...), segment...), raw[2:]...)
	if err := os.WriteFile(path, spliced, 0o644); err != nil {
		t.Fatalf("write spliced jpeg: %v", err)
	}
}

func TestProcessStripsEXIF(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.ImageProcessing.OutputFormat = "jpg"
	cfg.ImageProcessing.DeleteOriginals = false
	cfg.ImageProcessing.StripEXIF = true

	dir := t.TempDir()
	src := filepath.Join(dir, "camera_shot.jpg")
	writeJPEGWithEXIF(t, src)

	input, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	if !bytes.Contains(input, []byte("Exif")) {
		t.Fatal("source should carry an Exif segment")
	}

	opt := optimizer.New(cfg, nil)
	processed, err := opt.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	output, err := os.ReadFile(processed.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if bytes.Contains(output, []byte("Exif")) {
		t.Fatal("output should carry no Exif segment")
	}
}

func TestBatchProcessContinuesPastFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.ImageProcessing.OutputFormat = "jpg"
	cfg.ImageProcessing.DeleteOriginals = false

	dir := t.TempDir()
	good := filepath.Join(dir, "good.jpg")
	testsupport.WriteImage(t, good, 400, 300)
	bad := filepath.Join(dir, "bad.jpg")
	testsupport.WriteFile(t, bad, 32)

	opt := optimizer.New(cfg, nil)
	batch := opt.BatchProcess(context.Background(), []string{bad, good})
	if len(batch.Results) != 2 {
		t.Fatalf("results = %d", len(batch.Results))
	}
	if len(batch.Succeeded()) != 1 {
		t.Fatalf("succeeded = %d", len(batch.Succeeded()))
	}
	failed := batch.Failed()
	if len(failed) != 1 || failed[0].Path != bad {
		t.Fatalf("failed = %+v", failed)
	}
}
