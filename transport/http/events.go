package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/govdash/adapters/events"
	"github.com/layer-3/govdash/service"
)

// EventStream relays auth events to the browser as server-sent events
type EventStream struct {
	subscriber message.Subscriber
	ctrl       *service.AuthController
	logger     *slog.Logger
}

// NewEventStream creates a new event stream handler
func NewEventStream(subscriber message.Subscriber, ctrl *service.AuthController, logger *slog.Logger) *EventStream {
	return &EventStream{subscriber: subscriber, ctrl: ctrl, logger: logger}
}

// Serve streams a "session" event with the current snapshot, then one event per
// auth transition until the client goes away.
func (s *EventStream) Serve(c *gin.Context) {
	ctx := c.Request.Context()
	messages, err := s.subscriber.Subscribe(ctx, events.AuthTopic)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event stream unavailable"})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("session", s.ctrl.Snapshot())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			event, err := events.DecodeAuthEvent(msg)
			msg.Ack()
			if err != nil {
				s.logger.Warn("dropping undecodable auth event", "uuid", msg.UUID, "error", err)
				return true
			}
			c.SSEvent(string(event.Type), event)
			return true
		}
	})
}
