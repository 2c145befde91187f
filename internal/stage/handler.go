// Package stage defines the contract between the workflow manager and the
// pipeline stages that move a product folder toward publication.
package stage

import (
	"context"

	"relic/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
// Prepare validates inputs and transitions the item into the stage's
// processing status; Execute performs the work and sets the outcome status.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
