// Package events carries change notifications between the services and
// any live subscribers (the SSE endpoint, other processes).
package events

import (
	"context"
	"time"
)

type Type string

const (
	PropertyChanged Type = "property.changed"
	FeedbackChanged Type = "feedback.changed"
	RatingChanged   Type = "rating.changed"
	ScoreUpdated    Type = "score.updated"
	SessionChanged  Type = "session.changed"
)

type Event struct {
	Type       Type        `json:"type"`
	PropertyID string      `json:"property_id,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	At         time.Time   `json:"at"`
}

// Handler receives published events. It must not block.
type Handler func(Event)

type Bus interface {
	Publish(ctx context.Context, evt Event) error
	// Subscribe registers h until the returned func is called or ctx ends.
	Subscribe(ctx context.Context, h Handler) (func(), error)
	Close() error
}

// New builds an event for propertyID stamped with the current time.
func New(t Type, propertyID string, data interface{}) Event {
	return Event{Type: t, PropertyID: propertyID, Data: data, At: time.Now().UTC()}
}
