package ports

import (
	"context"

	"github.com/layer-3/govdash/core"
)

// EventPublisher publishes auth lifecycle events to other views and processes
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, event core.AuthEvent) error
}
