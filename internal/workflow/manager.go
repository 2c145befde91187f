package workflow

import (
	"log/slog"

	"relic/internal/bgremove"
	"relic/internal/config"
	"relic/internal/identification"
	"relic/internal/logging"
	"relic/internal/optimizer"
	"relic/internal/organizer"
	"relic/internal/queue"
	"relic/internal/services/ai"
	"relic/internal/services/cdn"
	"relic/internal/services/market"
	"relic/internal/sku"
	"relic/internal/stage"
)

// Handlers bundles the stage handlers the manager sequences. Tests inject
// fakes through this struct; nil fields fall back to the real handler built
// from configuration.
type Handlers struct {
	Identify stage.Handler
	Optimize stage.Handler
	RemoveBG stage.Handler
	Upload   stage.Handler
	Generate stage.Handler
	Publish  stage.Handler
}

// Manager walks product folders through the pipeline stages.
type Manager struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	handlers  Handlers
	organizer *organizer.Organizer
	testMode  bool
}

// Option customizes manager construction.
type Option func(*Manager)

// WithTestMode stops the pipeline before publish; items land in
// test_complete instead of published.
func WithTestMode(enabled bool) Option {
	return func(m *Manager) {
		m.testMode = enabled
	}
}

// WithHandlers overrides individual stage handlers, primarily for tests.
func WithHandlers(handlers Handlers) Option {
	return func(m *Manager) {
		if handlers.Identify != nil {
			m.handlers.Identify = handlers.Identify
		}
		if handlers.Optimize != nil {
			m.handlers.Optimize = handlers.Optimize
		}
		if handlers.RemoveBG != nil {
			m.handlers.RemoveBG = handlers.RemoveBG
		}
		if handlers.Upload != nil {
			m.handlers.Upload = handlers.Upload
		}
		if handlers.Generate != nil {
			m.handlers.Generate = handlers.Generate
		}
		if handlers.Publish != nil {
			m.handlers.Publish = handlers.Publish
		}
	}
}

// NewManager wires the full stage pipeline from configuration.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	manager := &Manager{
		cfg:       cfg,
		store:     store,
		logger:    logger.With(logging.String(logging.FieldComponent, "workflow")),
		organizer: organizer.NewOrganizer(cfg, logger),
	}
	for _, opt := range opts {
		opt(manager)
	}

	alloc := sku.NewAllocator(cfg, logger)
	if manager.handlers.Identify == nil {
		manager.handlers.Identify = identification.NewIdentifier(cfg, alloc, logger)
	}
	if manager.handlers.Optimize == nil {
		manager.handlers.Optimize = optimizer.NewStage(optimizer.New(cfg, logger))
	}
	if manager.handlers.RemoveBG == nil && cfg.ImageProcessing.BackgroundRemoval.Enabled {
		manager.handlers.RemoveBG = bgremove.NewStage(bgremove.New(cfg, logger))
	}
	if manager.handlers.Upload == nil {
		manager.handlers.Upload = cdn.NewStage(cdn.NewClient(cfg), logger)
	}
	if manager.handlers.Generate == nil {
		manager.handlers.Generate = ai.NewStage(ai.NewClient(cfg), cfg, logger)
	}
	if manager.handlers.Publish == nil {
		manager.handlers.Publish = market.NewStage(market.NewClient(cfg), logger, manager.testMode)
	}
	return manager
}

// step names one pipeline stage with its queue transitions.
type step struct {
	name       string
	handler    stage.Handler
	processing queue.Status
	done       queue.Status
}

// sequence returns the stage order for one folder. Background removal only
// participates when enabled.
func (m *Manager) sequence() []step {
	steps := []step{
		{name: "detecting", handler: m.handlers.Identify, processing: queue.StatusDetecting, done: queue.StatusDetected},
		{name: "optimizing", handler: m.handlers.Optimize, processing: queue.StatusOptimizing, done: queue.StatusOptimized},
	}
	if m.handlers.RemoveBG != nil {
		steps = append(steps, step{name: "removing_background", handler: m.handlers.RemoveBG, processing: queue.StatusRemovingBG, done: queue.StatusBackgroundRemoved})
	}
	steps = append(steps,
		step{name: "uploading", handler: m.handlers.Upload, processing: queue.StatusUploading, done: queue.StatusUploaded},
		step{name: "generating", handler: m.handlers.Generate, processing: queue.StatusGenerating, done: queue.StatusGenerated},
		step{name: "publishing", handler: m.handlers.Publish, processing: queue.StatusPublishing, done: queue.StatusPublished},
	)
	return steps
}
