package optimizer

import (
	"context"
	"fmt"

	"relic/internal/logging"
	"relic/internal/queue"
	"relic/internal/services"
	"relic/internal/stage"
)

// Stage adapts the optimizer to the workflow handler contract.
type Stage struct {
	opt *Optimizer
}

// NewStage constructs the optimize stage handler.
func NewStage(opt *Optimizer) *Stage {
	return &Stage{opt: opt}
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if len(item.Images()) == 0 {
		return services.Wrap(services.ErrValidation, "optimizing", "validate inputs",
			"no images recorded for folder; detection must run first", nil)
	}
	item.ErrorMessage = ""
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.opt.logger)
	images := item.Images()

	batch := s.opt.BatchProcess(ctx, images)
	succeeded := batch.Succeeded()
	if len(succeeded) == 0 {
		return services.Wrap(services.ErrValidation, "optimizing", "process images",
			fmt.Sprintf("all %d images failed optimization", len(images)), firstError(batch))
	}
	if err := item.SetProcessed(succeeded); err != nil {
		return services.Wrap(services.ErrTransient, "optimizing", "record results", "encode processed image records", err)
	}
	for _, failure := range batch.Failed() {
		logger.Warn("image skipped after optimization failure",
			logging.String("path", failure.Path),
			logging.Error(failure.Err))
	}

	logger.Info("folder optimized",
		logging.Int("images", len(images)),
		logging.Int("processed", len(succeeded)),
		logging.Int("failed", len(batch.Failed())))
	item.Status = queue.StatusOptimized
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "optimizer"
	format := s.opt.cfg.ImageProcessing.OutputFormat
	switch format {
	case "webp", "jpg", "jpeg", "png":
		return stage.Healthy(name)
	default:
		return stage.Unhealthy(name, fmt.Sprintf("unsupported output format %q", format))
	}
}

func firstError(batch BatchResult) error {
	for _, res := range batch.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}
