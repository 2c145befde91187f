package market

import (
	"context"
	"log/slog"

	"relic/internal/logging"
	"relic/internal/queue"
	"relic/internal/services"
	"relic/internal/stage"
)

// Stage submits the assembled payload to the marketplace. In test mode the
// submission is skipped and the item lands in test_complete instead.
type Stage struct {
	client   *Client
	logger   *slog.Logger
	testMode bool
}

// NewStage constructs the publish stage handler.
func NewStage(client *Client, logger *slog.Logger, testMode bool) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		client:   client,
		logger:   logger.With(logging.String(logging.FieldComponent, "market")),
		testMode: testMode,
	}
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if item.Payload() == nil {
		return services.Wrap(services.ErrValidation, "publishing", "validate inputs",
			"no publish payload assembled; generation must run first", nil)
	}
	item.ErrorMessage = ""
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	payload := item.Payload()

	if s.testMode {
		logger.Info("test mode, skipping publish",
			logging.String(logging.FieldSKU, item.SKU),
			logging.String("title", payload.Title))
		item.Status = queue.StatusTestComplete
		return nil
	}

	result, err := s.client.Publish(ctx, payload)
	if err != nil {
		return err
	}
	logger.Info("listing published",
		logging.String(logging.FieldSKU, item.SKU),
		logging.String("listing_id", result.ListingID),
		logging.String("listing_url", result.ListingURL))
	item.Status = queue.StatusPublished
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "market"
	if s.testMode {
		return stage.Healthy(name)
	}
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, services.Details(err).Message)
	}
	return stage.Healthy(name)
}
