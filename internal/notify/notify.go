// Package notify publishes best-effort order activity events.
package notify

import (
	"context"
	"log"
	"time"
)

type EventType string

const (
	EventOrderPlaced    EventType = "order_placed"
	EventStatusChanged  EventType = "order_status_changed"
	EventPaymentUpdated EventType = "order_payment_updated"
)

// Event describes one change to an order.
type Event struct {
	Type    EventType `json:"type"`
	OrderID string    `json:"order_id"`
	UserID  string    `json:"user_id"`
	Status  string    `json:"status"`
	Actor   string    `json:"actor,omitempty"`
	Note    string    `json:"note,omitempty"`
	Total   string    `json:"total,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier delivers events. Callers treat errors as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
	Close(ctx context.Context) error
}

// LogNotifier writes events to the standard logger.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (LogNotifier) Notify(_ context.Context, ev Event) error {
	log.Printf("event %s order=%s user=%s status=%s actor=%s", ev.Type, ev.OrderID, ev.UserID, ev.Status, ev.Actor)
	return nil
}

func (LogNotifier) Close(context.Context) error { return nil }
