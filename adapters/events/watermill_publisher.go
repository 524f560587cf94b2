package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/ports"
)

// AuthTopic carries auth lifecycle events
const AuthTopic = "govdash.auth"

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     AuthTopic,
	}
}

// PublishAuthEvent publishes an auth event
func (p *WatermillPublisher) PublishAuthEvent(ctx context.Context, event core.AuthEvent) error {
	if event.ID == "" {
		event.ID = watermill.NewUUID()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("type", string(event.Type))
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// DecodeAuthEvent reads an AuthEvent from a message published by WatermillPublisher
func DecodeAuthEvent(msg *message.Message) (core.AuthEvent, error) {
	var event core.AuthEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return core.AuthEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

// NopPublisher drops every event
type NopPublisher struct{}

// PublishAuthEvent does nothing
func (NopPublisher) PublishAuthEvent(ctx context.Context, event core.AuthEvent) error {
	return nil
}
