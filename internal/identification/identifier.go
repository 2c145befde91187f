// Package identification is the first pipeline stage: it resolves a folder's
// image set, detects the product category from the folder name, and allocates
// the SKU.
package identification

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"relic/internal/catalog"
	"relic/internal/config"
	"relic/internal/logging"
	"relic/internal/queue"
	"relic/internal/services"
	"relic/internal/sku"
	"relic/internal/stage"
)

// Identifier detects what a product folder contains and assigns its SKU.
type Identifier struct {
	cfg      *config.Config
	logger   *slog.Logger
	detector *catalog.Detector
	alloc    *sku.Allocator
}

// NewIdentifier creates the detection stage handler.
func NewIdentifier(cfg *config.Config, alloc *sku.Allocator, logger *slog.Logger) *Identifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Identifier{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "identification")),
		detector: catalog.NewDetector(cfg),
		alloc:    alloc,
	}
}

func (i *Identifier) Prepare(ctx context.Context, item *queue.Item) error {
	info, err := os.Stat(item.FolderPath)
	if err != nil || !info.IsDir() {
		return services.Wrap(services.ErrValidation, "detecting", "validate inputs",
			fmt.Sprintf("folder unavailable: %s", item.FolderPath), err)
	}
	item.ErrorMessage = ""
	return nil
}

func (i *Identifier) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, i.logger)

	images, err := ListImages(item.FolderPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "detecting", "list images",
			fmt.Sprintf("cannot read folder %s", item.FolderName), err)
	}
	if len(images) == 0 {
		return services.Wrap(services.ErrValidation, "detecting", "list images",
			"no images found in folder", nil)
	}
	if err := item.SetImages(images); err != nil {
		return services.Wrap(services.ErrTransient, "detecting", "record results", "encode image list", err)
	}

	categoryID, category := i.detector.Detect(item.FolderName)
	item.CategoryID = categoryID

	if item.SKU == "" {
		allocated, err := i.alloc.Generate(ctx, category.Prefix, 0)
		if err != nil {
			return err
		}
		item.SKU = allocated
	}

	logger.Info("folder identified",
		logging.String(logging.FieldFolder, item.FolderName),
		logging.String("category", categoryID),
		logging.String(logging.FieldSKU, item.SKU),
		logging.Int("images", len(images)))
	item.Status = queue.StatusDetected
	return nil
}

func (i *Identifier) HealthCheck(ctx context.Context) stage.Health {
	const name = "identification"
	if len(i.cfg.Categories.Entries) == 0 {
		return stage.Unhealthy(name, "no categories configured")
	}
	if _, ok := i.cfg.Categories.Entries[i.cfg.Categories.Default]; !ok {
		return stage.Unhealthy(name, fmt.Sprintf("default category %q not configured", i.cfg.Categories.Default))
	}
	return stage.Healthy(name)
}
