package sku

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"relic/internal/config"
	"relic/internal/logging"
	"relic/internal/services"
)

const stateFileName = "sku_state.json"

var (
	skuPattern    = regexp.MustCompile(`^[A-Z]{3,4}-\d{4}-\d{4}$`)
	prefixPattern = regexp.MustCompile(`^[A-Z]{3,4}$`)
)

// state mirrors the JSON counter file on disk. Counters map prefix to a
// per-year running sequence.
type state struct {
	LastUpdated time.Time                 `json:"last_updated"`
	Counters    map[string]map[string]int `json:"counters"`
}

func newState() *state {
	return &state{Counters: make(map[string]map[string]int)}
}

// Allocator issues sequential SKUs of the form PREFIX-YYYY-NNNN backed by a
// JSON state file. An in-process mutex serializes callers within the daemon
// and an advisory file lock guards against concurrent CLI invocations.
type Allocator struct {
	mu       sync.Mutex
	path     string
	lock     *flock.Flock
	logger   *slog.Logger
	now      func() time.Time
	warnWide map[string]bool
}

// Option customizes allocator construction.
type Option func(*Allocator)

// WithClock overrides the wall clock, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

// NewAllocator builds an allocator persisting under the configured data
// directory.
func NewAllocator(cfg *config.Config, logger *slog.Logger, opts ...Option) *Allocator {
	if logger == nil {
		logger = logging.NewNop()
	}
	path := filepath.Join(cfg.Paths.DataDir, stateFileName)
	alloc := &Allocator{
		path:     path,
		lock:     flock.New(path + ".lock"),
		logger:   logger.With(logging.String(logging.FieldComponent, "sku")),
		now:      time.Now,
		warnWide: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(alloc)
	}
	return alloc
}

// Generate allocates the next SKU for the prefix and year, incrementing the
// persisted counter. A zero year means the current year.
func (a *Allocator) Generate(ctx context.Context, prefix string, year int) (string, error) {
	return a.next(ctx, prefix, year, true)
}

// PeekNext reports the SKU Generate would return without mutating state.
func (a *Allocator) PeekNext(ctx context.Context, prefix string, year int) (string, error) {
	return a.next(ctx, prefix, year, false)
}

func (a *Allocator) next(ctx context.Context, prefix string, year int, commit bool) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if !prefixPattern.MatchString(prefix) {
		return "", services.Wrap(services.ErrValidation, "sku", "generate", fmt.Sprintf("invalid prefix %q", prefix), nil)
	}
	if year == 0 {
		year = a.now().Year()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	locked, err := a.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "sku", "lock", "acquire state lock", err)
	}
	if !locked {
		return "", services.Wrap(services.ErrTransient, "sku", "lock", "state lock unavailable", nil)
	}
	defer func() {
		_ = a.lock.Unlock()
	}()

	st, err := a.load()
	if err != nil {
		return "", err
	}

	yearKey := fmt.Sprintf("%d", year)
	seq := st.Counters[prefix][yearKey] + 1

	if commit {
		if st.Counters[prefix] == nil {
			st.Counters[prefix] = make(map[string]int)
		}
		st.Counters[prefix][yearKey] = seq
		st.LastUpdated = a.now().UTC()
		if err := a.save(st); err != nil {
			return "", err
		}
	}

	return a.format(prefix, year, seq), nil
}

// SyncFromScan raises the persisted counter for the prefix/year to at least
// the provided sequence. Scan-derived state wins when it is ahead.
func (a *Allocator) SyncFromScan(ctx context.Context, prefix string, year, lastUsed int) error {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if lastUsed <= 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	locked, err := a.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return services.Wrap(services.ErrTransient, "sku", "lock", "acquire state lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrTransient, "sku", "lock", "state lock unavailable", nil)
	}
	defer func() {
		_ = a.lock.Unlock()
	}()

	st, err := a.load()
	if err != nil {
		return err
	}
	yearKey := fmt.Sprintf("%d", year)
	if st.Counters[prefix][yearKey] >= lastUsed {
		return nil
	}
	if st.Counters[prefix] == nil {
		st.Counters[prefix] = make(map[string]int)
	}
	st.Counters[prefix][yearKey] = lastUsed
	st.LastUpdated = a.now().UTC()
	return a.save(st)
}

func (a *Allocator) format(prefix string, year, seq int) string {
	if seq > 9999 {
		key := fmt.Sprintf("%s-%d", prefix, year)
		if !a.warnWide[key] {
			a.warnWide[key] = true
			a.logger.Warn("sku sequence exceeded four digits, widening field",
				logging.String("prefix", prefix),
				logging.Int("year", year),
				logging.Int("sequence", seq))
		}
		return fmt.Sprintf("%s-%d-%d", prefix, year, seq)
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}

func (a *Allocator) load() (*state, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return newState(), nil
		}
		return nil, services.Wrap(services.ErrTransient, "sku", "load", "read state file", err)
	}
	st := newState()
	if err := json.Unmarshal(data, st); err != nil {
		a.logger.Warn("sku state file unreadable, starting fresh", logging.Error(err))
		return newState(), nil
	}
	if st.Counters == nil {
		st.Counters = make(map[string]map[string]int)
	}
	return st, nil
}

func (a *Allocator) save(st *state) error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "sku", "save", "create data directory", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrTransient, "sku", "save", "encode state", err)
	}
	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "sku", "save", "write state file", err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		return services.Wrap(services.ErrTransient, "sku", "save", "replace state file", err)
	}
	return nil
}

// Validate reports whether the candidate is a well-formed SKU. Input is
// uppercased before the check so user-entered values round-trip.
func Validate(candidate string) bool {
	return skuPattern.MatchString(strings.ToUpper(strings.TrimSpace(candidate)))
}

// Normalize uppercases and trims a SKU candidate.
func Normalize(candidate string) string {
	return strings.ToUpper(strings.TrimSpace(candidate))
}
