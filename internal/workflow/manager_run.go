package workflow

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"relic/internal/identification"
	"relic/internal/logging"
	"relic/internal/queue"
	"relic/internal/services"
	"relic/internal/stageexec"
)

// FolderResult summarizes one folder's trip through the pipeline. Status is
// the pipeline outcome (published, test_complete, or failed); the stored item
// moves on to completed once filing succeeds.
type FolderResult struct {
	Folder    string
	SKU       string
	Status    queue.Status
	FinalPath string
	Err       error
}

// Discover lists watch-dir entries that qualify for processing, in
// directory-listing order.
func (m *Manager) Discover() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.Paths.WatchDir)
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(m.cfg.Paths.WatchDir, entry.Name())
		if identification.IsCandidateFolder(path) {
			folders = append(folders, path)
		}
	}
	return folders, nil
}

// RunOnce processes every discovered folder exactly once. Per-folder failures
// are captured in the results; no error escapes except watch-dir access
// problems surfaced as an empty result set with logging.
func (m *Manager) RunOnce(ctx context.Context) []FolderResult {
	logger := logging.WithContext(ctx, m.logger)

	if affected, err := m.store.ResetStuckProcessing(ctx); err != nil {
		logger.Warn("could not reset stuck items", logging.Error(err))
	} else if affected > 0 {
		logger.Info("reset stuck items to pending", logging.Int64("reset", affected))
	}

	folders, err := m.Discover()
	if err != nil {
		logger.Error("watch directory unavailable",
			logging.String("watch_dir", m.cfg.Paths.WatchDir),
			logging.Error(err))
		return nil
	}

	// Interruption is honored between folders only; a folder that entered
	// the pipeline runs to a terminal state.
	results := make([]FolderResult, 0, len(folders))
	for _, folder := range folders {
		if ctx.Err() != nil {
			break
		}
		results = append(results, m.processFolder(context.WithoutCancel(ctx), folder))
	}

	var completed, failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
		} else {
			completed++
		}
	}
	logger.Info("cycle finished",
		logging.String(logging.FieldEventType, "cycle_complete"),
		logging.Int("folders", len(results)),
		logging.Int("completed", completed),
		logging.Int("failed", failed))
	return results
}

// processFolder runs the stage sequence for a single folder. Any stage error
// fails the folder: it is filed under the failed root and later folders are
// unaffected.
func (m *Manager) processFolder(ctx context.Context, folder string) FolderResult {
	logger := logging.WithContext(ctx, m.logger)
	result := FolderResult{Folder: filepath.Base(folder)}

	item, err := m.store.FindByFolder(ctx, folder)
	if err == nil && item == nil {
		item, err = m.store.NewFolder(ctx, folder)
	}
	if err != nil {
		result.Err = err
		logger.Error("could not enqueue folder",
			logging.String(logging.FieldFolder, result.Folder),
			logging.Error(err))
		return result
	}

	itemCtx := services.WithItemID(ctx, item.ID)
	itemCtx = services.WithRequestID(itemCtx, uuid.NewString())
	for _, st := range m.sequence() {
		if err := stageexec.Run(itemCtx, stageexec.Options{
			Logger:     m.logger,
			Store:      m.store,
			Handler:    st.handler,
			StageName:  st.name,
			Processing: st.processing,
			Done:       st.done,
			Item:       item,
		}); err != nil {
			m.fileFailed(itemCtx, item)
			result.SKU = item.SKU
			result.Status = item.Status
			result.FinalPath = item.FinalPath
			result.Err = err
			return result
		}
	}

	// Filing overwrites the item status with completed; the publish outcome
	// (published or test_complete) is what the caller wants to see.
	outcome := item.Status
	if err := m.fileCompleted(itemCtx, item); err != nil {
		result.SKU = item.SKU
		result.Status = item.Status
		result.Err = err
		return result
	}

	result.SKU = item.SKU
	result.Status = outcome
	result.FinalPath = item.FinalPath
	return result
}

// fileCompleted archives a folder that finished every stage.
func (m *Manager) fileCompleted(ctx context.Context, item *queue.Item) error {
	if err := stageexec.Run(ctx, stageexec.Options{
		Logger:     m.logger,
		Store:      m.store,
		Handler:    m.organizer,
		StageName:  "filing",
		Processing: item.Status,
		Done:       queue.StatusCompleted,
		Item:       item,
	}); err != nil {
		m.fileFailed(ctx, item)
		return err
	}
	return nil
}

// fileFailed moves a failed folder aside; filing problems are logged, never
// propagated, so one stuck folder cannot wedge the cycle.
func (m *Manager) fileFailed(ctx context.Context, item *queue.Item) {
	logger := logging.WithContext(ctx, m.logger)
	if _, err := os.Stat(item.FolderPath); err != nil {
		return
	}
	if err := m.organizer.FileFailed(ctx, item); err != nil {
		logger.Error("could not file failed folder",
			logging.String(logging.FieldFolder, item.FolderName),
			logging.Error(err))
		return
	}
	if err := m.store.Update(ctx, item); err != nil {
		logger.Warn("could not persist failed filing", logging.Error(err))
	}
}

// RunDaemon loops RunOnce until the context ends. Cancellation is honored
// between folders and between cycles, never mid-folder. A cycle with
// failures wakes up again after the shorter error retry interval.
func (m *Manager) RunDaemon(ctx context.Context) error {
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("watch loop started",
		logging.String("watch_dir", m.cfg.Paths.WatchDir),
		logging.Duration("interval", m.pollInterval()))

	timer := time.NewTimer(m.cycleDelay(m.RunOnce(ctx)))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch loop stopped")
			return ctx.Err()
		case <-timer.C:
			timer.Reset(m.cycleDelay(m.RunOnce(ctx)))
		}
	}
}

func (m *Manager) pollInterval() time.Duration {
	interval := time.Duration(m.cfg.Workflow.PollInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return interval
}

// cycleDelay picks the wait before the next cycle: the error retry interval
// after any folder failure, the poll interval otherwise.
func (m *Manager) cycleDelay(results []FolderResult) time.Duration {
	retry := time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second
	if retry > 0 {
		for _, res := range results {
			if res.Err != nil {
				return retry
			}
		}
	}
	return m.pollInterval()
}
