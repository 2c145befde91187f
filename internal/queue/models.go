package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline item.
type Status string

const (
	StatusPending           Status = "pending"
	StatusDetecting         Status = "detecting"
	StatusDetected          Status = "detected"
	StatusOptimizing        Status = "optimizing"
	StatusOptimized         Status = "optimized"
	StatusRemovingBG        Status = "removing_background"
	StatusBackgroundRemoved Status = "background_removed"
	StatusUploading         Status = "uploading"
	StatusUploaded          Status = "uploaded"
	StatusGenerating        Status = "generating"
	StatusGenerated         Status = "generated"
	StatusPublishing        Status = "publishing"
	StatusPublished         Status = "published"
	StatusTestComplete      Status = "test_complete"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusDetecting,
	StatusDetected,
	StatusOptimizing,
	StatusOptimized,
	StatusRemovingBG,
	StatusBackgroundRemoved,
	StatusUploading,
	StatusUploaded,
	StatusGenerating,
	StatusGenerated,
	StatusPublishing,
	StatusPublished,
	StatusTestComplete,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDetecting:  {},
	StatusOptimizing: {},
	StatusRemovingBG: {},
	StatusUploading:  {},
	StatusGenerating: {},
	StatusPublishing: {},
}

// HealthSummary describes aggregated counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// Item represents a product folder moving through the pipeline, persisted in
// SQLite so that a crash mid-run leaves a diagnosable status trail instead of
// a half-moved folder.
type Item struct {
	ID            int64
	FolderPath    string
	FolderName    string
	CategoryID    string
	SKU           string
	Status        Status
	ImagesJSON    string
	ProcessedJSON string
	UploadedJSON  string
	AIResultJSON  string
	PayloadJSON   string
	ErrorMessage  string
	FinalPath     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status ends the pipeline for a folder.
func IsTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
}
