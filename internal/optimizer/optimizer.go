// Package optimizer normalizes product photographs for publication: EXIF
// orientation applied, alpha flattened onto white, long edge capped, metadata
// stripped by re-encoding a clean pixel buffer, plus a thumbnail rendition.
package optimizer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // decode webp sources

	"relic/internal/config"
	"relic/internal/fileutil"
	"relic/internal/listing"
	"relic/internal/logging"
	"relic/internal/services"
)

// ProcessedDirName is the sibling directory optimized images are written to.
const ProcessedDirName = "processed"

// Optimizer converts source photographs into web-ready renditions.
type Optimizer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs an optimizer bound to the configured image settings.
func New(cfg *config.Config, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Optimizer{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "optimizer")),
	}
}

// ImageResult tags one batch entry with either its processed output or the
// error that stopped it.
type ImageResult struct {
	Path      string
	Processed *listing.ProcessedImage
	Err       error
}

// BatchResult aggregates a folder's optimization run.
type BatchResult struct {
	Results []ImageResult
}

// Succeeded returns the processed images from successful entries in input
// order.
func (b BatchResult) Succeeded() []listing.ProcessedImage {
	out := make([]listing.ProcessedImage, 0, len(b.Results))
	for _, res := range b.Results {
		if res.Err == nil && res.Processed != nil {
			out = append(out, *res.Processed)
		}
	}
	return out
}

// Failed returns the entries that errored.
func (b BatchResult) Failed() []ImageResult {
	var out []ImageResult
	for _, res := range b.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// BatchProcess optimizes every path, continuing past individual failures.
func (o *Optimizer) BatchProcess(ctx context.Context, paths []string) BatchResult {
	logger := logging.WithContext(ctx, o.logger)
	batch := BatchResult{Results: make([]ImageResult, 0, len(paths))}
	for _, path := range paths {
		processed, err := o.Process(ctx, path)
		if err != nil {
			logger.Warn("image optimization failed",
				logging.String("path", path),
				logging.Error(err))
		}
		batch.Results = append(batch.Results, ImageResult{Path: path, Processed: processed, Err: err})
	}
	return batch
}

// Process optimizes a single photograph and returns its record. The original
// file is deleted (or moved aside) afterwards; failure to remove it is a
// warning on the result, never an error.
func (o *Optimizer) Process(ctx context.Context, path string) (*listing.ProcessedImage, error) {
	opts := o.cfg.ImageProcessing

	srcInfo, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "optimizing", "stat source", fmt.Sprintf("source image unavailable: %s", path), err)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "optimizing", "decode", fmt.Sprintf("cannot decode %s", filepath.Base(path)), err)
	}

	bounds := img.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()

	flattened := flattenOntoWhite(img)
	resized := resizeLongEdge(flattened, opts.MaxDimension)
	if opts.StripEXIF {
		// Encode from a freshly copied pixel buffer; the output must carry
		// nothing from the source container.
		resized = imaging.Clone(resized)
	}

	outDir := filepath.Join(filepath.Dir(path), ProcessedDirName)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "optimizing", "prepare output", "create processed directory", err)
	}

	format := strings.ToLower(strings.TrimSpace(opts.OutputFormat))
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(outDir, stem+"."+format)
	if err := Encode(resized, outPath, format, opts.Quality); err != nil {
		return nil, services.Wrap(services.ErrTransient, "optimizing", "encode", fmt.Sprintf("encode %s", filepath.Base(outPath)), err)
	}

	result := &listing.ProcessedImage{
		SourcePath:     path,
		OutputPath:     outPath,
		Format:         format,
		OriginalWidth:  origWidth,
		OriginalHeight: origHeight,
		Width:          resized.Bounds().Dx(),
		Height:         resized.Bounds().Dy(),
		OriginalBytes:  srcInfo.Size(),
	}

	if outInfo, err := os.Stat(outPath); err == nil {
		result.Bytes = outInfo.Size()
		if result.OriginalBytes > 0 {
			result.CompressionRatio = float64(result.Bytes) / float64(result.OriginalBytes)
		}
	}

	if opts.ThumbnailDimension > 0 {
		thumb := resizeLongEdge(flattened, opts.ThumbnailDimension)
		thumbPath := filepath.Join(outDir, stem+"_thumb."+format)
		if err := Encode(thumb, thumbPath, format, opts.ThumbnailQuality); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("thumbnail encode failed: %v", err))
		} else {
			result.ThumbnailPath = thumbPath
		}
	}

	o.retireOriginal(ctx, path, result)
	return result, nil
}

// retireOriginal deletes the source image or moves it to the configured
// keep-originals directory. Failures degrade to warnings so a read-only
// source never fails the folder.
func (o *Optimizer) retireOriginal(ctx context.Context, path string, result *listing.ProcessedImage) {
	opts := o.cfg.ImageProcessing
	if !opts.DeleteOriginals {
		return
	}
	logger := logging.WithContext(ctx, o.logger)

	if keepDir := strings.TrimSpace(opts.KeepOriginalsDir); keepDir != "" {
		target := filepath.Join(keepDir, filepath.Base(path))
		err := os.MkdirAll(keepDir, 0o755)
		if err == nil {
			err = fileutil.MoveFile(path, target)
		}
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("keep original move failed: %v", err))
			logger.Warn("could not move original aside", logging.String("path", path), logging.Error(err))
			return
		}
		result.OriginalDeleted = true
		return
	}

	if err := os.Remove(path); err != nil {
		warn := fmt.Sprintf("original delete failed: %v", err)
		result.Warnings = append(result.Warnings, warn)
		logger.Warn("could not delete original", logging.String("path", path), logging.Error(err))
		return
	}
	result.OriginalDeleted = true
}

// flattenOntoWhite composites any transparency over an opaque white canvas so
// every output format renders consistently.
func flattenOntoWhite(img image.Image) *image.NRGBA {
	if img, ok := img.(*image.NRGBA); ok && img.Opaque() {
		return img
	}
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// resizeLongEdge scales the image so its longer side equals maxDim, keeping
// aspect ratio with nearest-pixel rounding. Images already within bounds are
// returned unchanged.
func resizeLongEdge(img *image.NRGBA, maxDim int) *image.NRGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxDim <= 0 || (width <= maxDim && height <= maxDim) {
		return img
	}
	if width >= height {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}

// Encode writes img at path in the requested format. Re-encoding from the
// in-memory pixel buffer drops all source metadata.
func Encode(img *image.NRGBA, path, format string, quality int) error {
	switch format {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := webp.Encode(f, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return err
		}
		return f.Close()
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	case "png":
		return imaging.Save(img, path)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
