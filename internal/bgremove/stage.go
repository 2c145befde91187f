package bgremove

import (
	"context"

	"relic/internal/logging"
	"relic/internal/queue"
	"relic/internal/services"
	"relic/internal/stage"
)

// Stage adapts the remover to the workflow handler contract. Background
// removal is cosmetic: per-image failures are logged and the folder continues
// with the untouched renditions.
type Stage struct {
	remover *Remover
}

// NewStage constructs the background removal stage handler.
func NewStage(remover *Remover) *Stage {
	return &Stage{remover: remover}
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if len(item.Processed()) == 0 {
		return services.Wrap(services.ErrValidation, "removing_background", "validate inputs",
			"no optimized images recorded; optimization must run first", nil)
	}
	item.ErrorMessage = ""
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.remover.logger)

	paths := make([]string, 0, len(item.Processed()))
	for _, img := range item.Processed() {
		paths = append(paths, img.OutputPath)
	}

	result := s.remover.BatchRemove(ctx, paths)
	logger.Info("background removal finished",
		logging.String("strategy", s.remover.StrategyName()),
		logging.Int("total", result.Total),
		logging.Int("processed", result.Processed),
		logging.Int("failed", result.Failed),
		logging.Bool("fallback", result.UsedFallback))

	item.Status = queue.StatusBackgroundRemoved
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "bgremove"
	ip := s.remover.cfg.ImageProcessing
	if TransparentBackground(ip.BackgroundRemoval.BackgroundColor) {
		switch ip.OutputFormat {
		case "jpg", "jpeg":
			return stage.Unhealthy(name, "transparent background needs an alpha-capable output format (png or webp)")
		}
	}
	if s.remover.UsingFallback() && ip.BackgroundRemoval.Enabled {
		return stage.Unhealthy(name, "segmentation tool unavailable, edge fallback active")
	}
	return stage.Healthy(name)
}
