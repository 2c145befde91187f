package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrAuth          = errors.New("authentication error")
	ErrDuplicate     = errors.New("duplicate resource")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Marked reports whether the error already carries one of the sentinel
// markers, so callers can avoid double-wrapping.
func Marked(err error) bool {
	if err == nil {
		return false
	}
	for _, marker := range []error{ErrExternalTool, ErrValidation, ErrConfiguration, ErrAuth, ErrDuplicate, ErrNotFound, ErrTimeout, ErrTransient} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

// Retryable reports whether an error represents a condition worth retrying.
// Authentication, validation, and duplicate responses are never transient;
// retrying them only repeats the same rejection.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrAuth),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient):
		return true
	default:
		return false
	}
}

// Details carries the human-readable portion of a wrapped stage error.
type ErrorDetails struct {
	Message string
}

// Details extracts the message portion of a wrapped error for user-facing
// reporting. Falls back to the full error text.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	text := err.Error()
	for _, marker := range []error{ErrExternalTool, ErrValidation, ErrConfiguration, ErrAuth, ErrDuplicate, ErrNotFound, ErrTimeout, ErrTransient} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return ErrorDetails{Message: strings.TrimPrefix(text, prefix)}
		}
	}
	return ErrorDetails{Message: text}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
