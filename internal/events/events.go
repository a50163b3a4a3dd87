package events

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
)

const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent describes a change in an order's lifecycle.
type OrderEvent struct {
	Type           string    `json:"type"`
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	TotalAmount    string    `json:"total_amount,omitempty"`
	ItemCount      int       `json:"item_count,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishOrderEvent(ctx context.Context, e OrderEvent) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishOrderEvent(context.Context, OrderEvent) error { return nil }

func (noopPublisher) Close() error { return nil }
