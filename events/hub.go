package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sweetbite/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

// Subscriber identifies the user behind a websocket connection
type Subscriber struct {
	UserID uint
	Role   models.UserRole
}

// View returns the part of ev the subscriber may receive, and false when the
// event does not concern them. Couriers who are not assigned to the order only
// learn that it became ready or was taken, without customer or owner ids.
func (s Subscriber) View(ev OrderEvent) (OrderEvent, bool) {
	switch s.Role {
	case models.RoleCustomer:
		return ev, ev.CustomerID == s.UserID
	case models.RoleRestaurant:
		return ev, ev.RestaurantOwnerID == s.UserID
	case models.RoleDelivery:
		if ev.DeliveryID != nil && *ev.DeliveryID == s.UserID {
			return ev, true
		}
		if ev.Status == models.StatusReady || ev.Status == models.StatusPickedUp {
			return ev.public(), true
		}
	}
	return OrderEvent{}, false
}

type message struct {
	Event string     `json:"event"`
	Data  OrderEvent `json:"data"`
}

// conn is the subset of *websocket.Conn the hub writes to
type conn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub keeps the open dashboard connections and pushes matching events to them
type Hub struct {
	mu      sync.Mutex
	clients map[conn]Subscriber
}

func NewHub() *Hub {
	return &Hub{clients: make(map[conn]Subscriber)}
}

func (h *Hub) Register(c *websocket.Conn, sub Subscriber) {
	h.register(c, sub)
}

func (h *Hub) register(c conn, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = sub
}

func (h *Hub) Unregister(c *websocket.Conn) {
	h.unregister(c)
}

func (h *Hub) unregister(c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.Close()
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish writes the event to every client allowed to see it.
// Clients whose write fails are dropped.
func (h *Hub) Publish(_ context.Context, ev OrderEvent) error {
	full, err := json.Marshal(message{Event: string(ev.Type), Data: ev})
	if err != nil {
		return err
	}
	reduced, err := json.Marshal(message{Event: string(ev.Type), Data: ev.public()})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c, sub := range h.clients {
		view, ok := sub.View(ev)
		if !ok {
			continue
		}
		data := full
		if view != ev {
			data = reduced
		}
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": sub.UserID,
				"role":    sub.Role,
			}).WithError(err).Debug("dropping websocket client")
			delete(h.clients, c)
			c.Close()
		}
	}
	return nil
}
