// Package organizer files finished product folders out of the watch
// directory: completed folders under the completed root, failed ones under
// the failed root with an error note. The audit record is written into the
// folder before it moves so the archived directory is self-describing.
package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"relic/internal/config"
	"relic/internal/fileutil"
	"relic/internal/listing"
	"relic/internal/logging"
	"relic/internal/queue"
	"relic/internal/services"
	"relic/internal/stage"
)

const timestampLayout = "20060102-150405"

// Organizer moves terminal folders into their archive location.
type Organizer struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

// NewOrganizer constructs the filing stage handler.
func NewOrganizer(cfg *config.Config, logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Organizer{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "organizer")),
		now:    time.Now,
	}
}

func (o *Organizer) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := os.Stat(item.FolderPath); err != nil {
		return services.Wrap(services.ErrValidation, "filing", "validate inputs",
			fmt.Sprintf("folder unavailable: %s", item.FolderPath), err)
	}
	return nil
}

// Execute files a successfully processed folder under the completed root.
func (o *Organizer) Execute(ctx context.Context, item *queue.Item) error {
	final, err := o.file(ctx, item, o.cfg.Paths.CompletedDir, o.statusLabel(item))
	if err != nil {
		return err
	}
	item.FinalPath = final
	item.Status = queue.StatusCompleted
	return nil
}

// FileFailed archives a failed folder under the failed root, adding an
// _ERROR.txt note with the failure message.
func (o *Organizer) FileFailed(ctx context.Context, item *queue.Item) error {
	note := filepath.Join(item.FolderPath, "_ERROR.txt")
	content := fmt.Sprintf("%s\n%s\n", o.now().Format(time.RFC3339), strings.TrimSpace(item.ErrorMessage))
	if err := os.WriteFile(note, []byte(content), 0o644); err != nil {
		logging.WithContext(ctx, o.logger).Warn("could not write error note",
			logging.String(logging.FieldFolder, item.FolderName),
			logging.Error(err))
	}

	final, err := o.file(ctx, item, o.cfg.Paths.FailedDir, "failed")
	if err != nil {
		return err
	}
	item.FinalPath = final
	return nil
}

// file writes the audit record and moves the folder to a timestamped slot
// under root.
func (o *Organizer) file(ctx context.Context, item *queue.Item, root, status string) (string, error) {
	logger := logging.WithContext(ctx, o.logger)

	record := &listing.AuditRecord{
		SKU:            item.SKU,
		Category:       item.CategoryID,
		ProductData:    item.Payload(),
		AIResult:       item.AIResult(),
		UploadedImages: item.Uploaded(),
		ProcessedAt:    o.now().UTC(),
		Status:         status,
		Error:          strings.TrimSpace(item.ErrorMessage),
	}
	if _, err := listing.WriteAudit(item.FolderPath, record); err != nil {
		logger.Warn("could not write audit record",
			logging.String(logging.FieldFolder, item.FolderName),
			logging.Error(err))
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "filing", "prepare destination",
			fmt.Sprintf("create %s", root), err)
	}
	dest := filepath.Join(root, fmt.Sprintf("%s_%s", o.now().Format(timestampLayout), item.FolderName))
	dest = uniquePath(dest)
	if err := fileutil.MoveDir(item.FolderPath, dest); err != nil {
		return "", services.Wrap(services.ErrTransient, "filing", "move folder",
			fmt.Sprintf("move %s", item.FolderName), err)
	}

	logger.Info("folder filed",
		logging.String(logging.FieldFolder, item.FolderName),
		logging.String("destination", dest),
		logging.String("outcome", status))
	return dest, nil
}

func (o *Organizer) statusLabel(item *queue.Item) string {
	if item.Status == queue.StatusTestComplete {
		return string(queue.StatusTestComplete)
	}
	return string(queue.StatusPublished)
}

func (o *Organizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "organizer"
	for _, dir := range []string{o.cfg.Paths.CompletedDir, o.cfg.Paths.FailedDir} {
		if strings.TrimSpace(dir) == "" {
			return stage.Unhealthy(name, "archive directories not configured")
		}
	}
	return stage.Healthy(name)
}

// uniquePath appends a numeric suffix when the destination already exists,
// which can happen when two folders with the same name finish in the same
// second.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", path, n)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
