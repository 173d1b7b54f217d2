// Package events publishes booking and fulfillment domain events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	OrderSaved           Type = "order.saved"
	OrderStageUpdated    Type = "order.stage_updated"
	OrderCancelled       Type = "order.cancelled"
	AppointmentBooked    Type = "appointment.booked"
	AppointmentMoved     Type = "appointment.rescheduled"
	AppointmentPaid      Type = "appointment.paid"
	AppointmentCancelled Type = "appointment.cancelled"
)

// Event is the envelope written to the event stream.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// New creates an event keyed by the aggregate it concerns.
func New(t Type, key uuid.UUID, occurredAt time.Time, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		Key:        key.String(),
		OccurredAt: occurredAt.UTC(),
		Payload:    payload,
	}
}

// Publisher delivers domain events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that discards every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, ...Event) error { return nil }

func (nopPublisher) Close() error { return nil }
