package bgremove

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"

	"relic/internal/config"
	"relic/internal/services"
)

// edgeCutter estimates the subject mask without a segmentation model:
// grayscale, 3x3 edge convolution, threshold, then a dilation pass to close
// the outline. It is deterministic and fast but much coarser than the tool.
type edgeCutter struct {
	opts config.BackgroundRemoval
}

func newEdgeCutter(opts config.BackgroundRemoval) *edgeCutter {
	return &edgeCutter{opts: opts}
}

func (e *edgeCutter) Name() string {
	return "edge-fallback"
}

func (e *edgeCutter) Cut(ctx context.Context, srcPath string) (*image.NRGBA, error) {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "removing_background", "decode",
			fmt.Sprintf("cannot decode %s", filepath.Base(srcPath)), err)
	}
	src := imaging.Clone(img)

	mask := e.mask(src)
	out := imaging.Clone(src)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = mask.Pix[i]
	}
	return out, nil
}

// mask builds a per-pixel alpha estimate of the subject.
func (e *edgeCutter) mask(src *image.NRGBA) *image.NRGBA {
	gray := imaging.Grayscale(src)
	edges := imaging.Convolve3x3(gray, [9]float64{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}, nil)

	threshold := uint8(128 * e.opts.Strength)
	bounds := edges.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	binary := image.NewNRGBA(bounds)
	for i := 0; i < len(edges.Pix); i += 4 {
		alpha := uint8(0)
		if edges.Pix[i] >= threshold {
			alpha = 255
		}
		binary.Pix[i+3] = alpha
	}

	// Dilate the edge map so the outline closes around the subject and
	// interior pixels survive the cut.
	dilated := image.NewNRGBA(bounds)
	const radius = 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var best uint8
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					if a := binary.Pix[(ny*width+nx)*4+3]; a > best {
						best = a
					}
				}
			}
			dilated.Pix[(y*width+x)*4+3] = best
		}
	}
	return dilated
}
