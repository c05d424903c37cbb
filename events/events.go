// Package events carries order notifications to live dashboards and,
// optionally, to a message broker.
package events

import (
	"context"
	"errors"
	"time"

	"sweetbite/models"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	OrderPlaced        EventType = "order_placed"
	OrderStatusChanged EventType = "order_status"
)

type OrderEvent struct {
	Type              EventType          `json:"type"`
	OrderID           uint               `json:"order_id"`
	CustomerID        uint               `json:"customer_id,omitempty"`
	RestaurantID      uint               `json:"restaurant_id"`
	RestaurantOwnerID uint               `json:"restaurant_owner_id,omitempty"`
	DeliveryID        *uint              `json:"delivery_id,omitempty"`
	Status            models.OrderStatus `json:"status"`
	At                time.Time          `json:"at"`
}

// public strips who ordered, who owns the restaurant and who delivers
func (ev OrderEvent) public() OrderEvent {
	return OrderEvent{
		Type:         ev.Type,
		OrderID:      ev.OrderID,
		RestaurantID: ev.RestaurantID,
		Status:       ev.Status,
		At:           ev.At,
	}
}

// Publisher delivers order events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

// Nop drops every event
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }

// Multi publishes to every publisher and joins the failures
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev OrderEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishAll sends each event and logs failures
func PublishAll(ctx context.Context, p Publisher, evs ...OrderEvent) {
	if p == nil {
		return
	}
	for _, ev := range evs {
		if err := p.Publish(ctx, ev); err != nil {
			logrus.WithFields(logrus.Fields{
				"event":    ev.Type,
				"order_id": ev.OrderID,
				"status":   ev.Status,
			}).WithError(err).Warn("order event not delivered")
		}
	}
}
