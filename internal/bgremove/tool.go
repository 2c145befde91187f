package bgremove

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"relic/internal/config"
	"relic/internal/services"
)

// probeTool resolves the configured segmentation binary on PATH.
func probeTool(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("no segmentation tool configured")
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("segmentation tool %q not found: %w", name, err)
	}
	return path, nil
}

// toolCutter shells out to a segmentation binary that writes a PNG cutout
// with an alpha channel. Strength maps onto the tool's matting thresholds.
type toolCutter struct {
	binary string
	opts   config.BackgroundRemoval
}

func newToolCutter(binary string, opts config.BackgroundRemoval) *toolCutter {
	return &toolCutter{binary: binary, opts: opts}
}

func (t *toolCutter) Name() string {
	return filepath.Base(t.binary)
}

func (t *toolCutter) Cut(ctx context.Context, srcPath string) (*image.NRGBA, error) {
	tmp, err := os.CreateTemp("", "relic-cutout-*.png")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "removing_background", "temp file", "create cutout scratch file", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	strength := t.opts.Strength
	fgThreshold := 200 + int(40*strength)
	bgThreshold := int(20 * (1 - strength))
	erode := int(10 * strength)

	args := []string{
		"i", "-a",
		"-af", fmt.Sprintf("%d", fgThreshold),
		"-ab", fmt.Sprintf("%d", bgThreshold),
		"-ae", fmt.Sprintf("%d", erode),
		srcPath, tmpPath,
	}
	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, services.Wrap(services.ErrExternalTool, "removing_background", "segment",
			fmt.Sprintf("%s failed: %s", t.Name(), detail), err)
	}

	img, err := imaging.Open(tmpPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "removing_background", "read cutout",
			fmt.Sprintf("%s produced unreadable output", t.Name()), err)
	}
	return imaging.Clone(img), nil
}
