// Package bgremove isolates the product subject from its photographic
// background. A configured segmentation binary is used when present on PATH;
// otherwise an edge-based estimate keeps the pipeline running without the
// external tool.
package bgremove

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"relic/internal/config"
	"relic/internal/logging"
	"relic/internal/optimizer"
	"relic/internal/services"
)

// cutter produces a subject cutout with a transparent background.
type cutter interface {
	Name() string
	Cut(ctx context.Context, srcPath string) (*image.NRGBA, error)
}

// Remover applies background removal to processed product images in place.
type Remover struct {
	cfg      *config.Config
	logger   *slog.Logger
	strategy cutter
	fallback bool
}

// New selects the removal strategy at construction: the configured tool when
// it resolves on PATH, the built-in edge estimate otherwise.
func New(cfg *config.Config, logger *slog.Logger) *Remover {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldComponent, "bgremove"))

	opts := cfg.ImageProcessing.BackgroundRemoval
	var (
		strategy cutter
		fallback bool
	)
	if tool, err := probeTool(opts.Tool); err == nil {
		strategy = newToolCutter(tool, opts)
	} else {
		strategy = newEdgeCutter(opts)
		fallback = true
		if opts.Enabled {
			logger.Warn("segmentation tool unavailable, using edge-based fallback",
				logging.String("tool", opts.Tool),
				logging.Error(err))
		}
	}
	return &Remover{cfg: cfg, logger: logger, strategy: strategy, fallback: fallback}
}

// UsingFallback reports whether the edge estimate was selected.
func (r *Remover) UsingFallback() bool {
	return r.fallback
}

// StrategyName identifies the active strategy for health reporting.
func (r *Remover) StrategyName() string {
	return r.strategy.Name()
}

// BatchResult aggregates a folder's background removal run.
type BatchResult struct {
	Total        int
	Processed    int
	Failed       int
	Files        []string
	Errors       map[string]error
	UsedFallback bool
}

// BatchRemove processes every path, continuing past per-image failures. The
// first image warms the strategy up; its latency includes any tool start
// cost.
func (r *Remover) BatchRemove(ctx context.Context, paths []string) BatchResult {
	logger := logging.WithContext(ctx, r.logger)
	result := BatchResult{Total: len(paths), Errors: make(map[string]error), UsedFallback: r.fallback}
	for _, path := range paths {
		if err := r.Process(ctx, path); err != nil {
			result.Failed++
			result.Errors[path] = err
			logger.Warn("background removal failed",
				logging.String("path", path),
				logging.Error(err))
			continue
		}
		result.Processed++
		result.Files = append(result.Files, path)
	}
	return result
}

// Process removes the background from one image, overwriting it in place.
func (r *Remover) Process(ctx context.Context, path string) error {
	opts := r.cfg.ImageProcessing.BackgroundRemoval

	cutout, err := r.strategy.Cut(ctx, path)
	if err != nil {
		return err
	}

	if opts.Feather > 0 {
		cutout = featherAlpha(cutout, float64(opts.Feather))
	}

	composed := cutout
	if !TransparentBackground(opts.BackgroundColor) {
		background, err := parseHexColor(opts.BackgroundColor)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "removing_background", "parse color",
				fmt.Sprintf("invalid bg_color %q", opts.BackgroundColor), err)
		}
		composed = compose(cutout, background, opts.PreserveShadows)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if err := optimizer.Encode(composed, path, format, r.cfg.ImageProcessing.Quality); err != nil {
		return services.Wrap(services.ErrTransient, "removing_background", "encode",
			fmt.Sprintf("rewrite %s", filepath.Base(path)), err)
	}
	return nil
}

// compose flattens the cutout over a solid background. When shadows are
// preserved, a blurred copy of the subject's silhouette is laid underneath at
// low opacity to keep the object grounded.
func compose(cutout *image.NRGBA, background color.NRGBA, preserveShadows bool) *image.NRGBA {
	bounds := cutout.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), background)

	if preserveShadows {
		shadow := silhouette(cutout)
		shadow = imaging.Blur(shadow, 6)
		canvas = imaging.Overlay(canvas, shadow, image.Pt(0, 4), 0.10)
	}

	return imaging.Overlay(canvas, cutout, image.Pt(0, 0), 1.0)
}

// silhouette paints the subject's opaque pixels black, keeping alpha, so a
// blurred copy reads as a drop shadow.
func silhouette(img *image.NRGBA) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0
		out.Pix[i+1] = 0
		out.Pix[i+2] = 0
	}
	return out
}

// featherAlpha softens the mask edge by blurring only the alpha channel.
func featherAlpha(img *image.NRGBA, radius float64) *image.NRGBA {
	blurred := imaging.Blur(img, radius)
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = blurred.Pix[i]
	}
	return out
}

// TransparentBackground reports whether the configured target keeps the
// alpha cutout instead of compositing over a solid color. Requires an output
// format that carries alpha (png or webp).
func TransparentBackground(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "transparent", "none":
		return true
	default:
		return false
	}
}

func parseHexColor(value string) (color.NRGBA, error) {
	value = strings.TrimSpace(strings.TrimPrefix(value, "#"))
	if len(value) != 6 {
		return color.NRGBA{}, fmt.Errorf("expected #RRGGBB, got %q", value)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(value, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, err
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
