package cdn

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"relic/internal/listing"
	"relic/internal/logging"
	"relic/internal/queue"
	"relic/internal/services"
	"relic/internal/stage"
)

// Stage uploads a folder's optimized renditions to the CDN.
type Stage struct {
	client *Client
	logger *slog.Logger
}

// NewStage constructs the upload stage handler.
func NewStage(client *Client, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		client: client,
		logger: logger.With(logging.String(logging.FieldComponent, "cdn")),
	}
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if len(item.Processed()) == 0 {
		return services.Wrap(services.ErrValidation, "uploading", "validate inputs",
			"no optimized images to upload", nil)
	}
	item.ErrorMessage = ""
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	processed := item.Processed()

	uploaded := make([]listing.UploadedImage, 0, len(processed))
	var failures int
	for idx, img := range processed {
		name := remoteName(item.SKU, idx, img.OutputPath)
		record, err := s.client.Upload(ctx, img.OutputPath, name)
		if err != nil {
			failures++
			logger.Warn("image upload failed",
				logging.String("path", img.OutputPath),
				logging.Error(err))
			continue
		}
		uploaded = append(uploaded, *record)
	}

	if len(uploaded) == 0 {
		return services.Wrap(services.ErrTransient, "uploading", "upload images",
			fmt.Sprintf("all %d uploads failed", len(processed)), nil)
	}
	if err := item.SetUploaded(uploaded); err != nil {
		return services.Wrap(services.ErrTransient, "uploading", "record results", "encode upload records", err)
	}

	logger.Info("folder uploaded",
		logging.Int("uploaded", len(uploaded)),
		logging.Int("failed", failures))
	item.Status = queue.StatusUploaded
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "cdn"
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, services.Details(err).Message)
	}
	return stage.Healthy(name)
}

// remoteName derives the public asset name: SKU-prefixed and 1-based ordered
// when a SKU exists, the source name otherwise.
func remoteName(sku string, idx int, path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if strings.TrimSpace(sku) == "" {
		return filepath.Base(path)
	}
	return fmt.Sprintf("%s_%d%s", sku, idx+1, ext)
}
