package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"shortlist/internal/apierr"
	"shortlist/internal/events"
)

const (
	eventBuffer      = 32
	defaultKeepAlive = 25 * time.Second
)

// EventsHandler streams bus events to the browser as server-sent events.
type EventsHandler struct {
	bus       events.Bus
	keepAlive time.Duration
}

func NewEventsHandler(bus events.Bus) *EventsHandler {
	return &EventsHandler{bus: bus, keepAlive: defaultKeepAlive}
}

// Stream handles GET /api/events. A client too slow to drain its buffer
// misses events and should re-fetch the property it is showing.
func (h *EventsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	ch := make(chan events.Event, eventBuffer)
	unsubscribe, err := h.bus.Subscribe(ctx, func(evt events.Event) {
		select {
		case ch <- evt:
		default:
		}
	})
	if err != nil {
		RespondError(c, apierr.Upstream(err))
		return
	}
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"user_id": currentUser(c).ID})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case evt := <-ch:
			c.SSEvent(string(evt.Type), evt)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
