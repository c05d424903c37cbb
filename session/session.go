// Package session keeps per-visitor state (login, cart, flash messages)
// in a keyed store. The browser only ever holds a signed session id.
package session

import (
	"context"
	"time"

	"sweetbite/cart"
	"sweetbite/models"
)

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-time notice shown on the next rendered page
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type Data struct {
	UserID  uint            `json:"user_id,omitempty"`
	Role    models.UserRole `json:"role,omitempty"`
	Cart    *cart.Cart      `json:"cart,omitempty"`
	Pending []Flash         `json:"flashes,omitempty"`

	dirty bool
}

func (d *Data) LoggedIn() bool {
	return d.UserID != 0
}

// Login records the user; the caller is expected to rotate the session id
func (d *Data) Login(user *models.User) {
	d.UserID = user.ID
	d.Role = user.Role
	d.Cart = nil
	d.dirty = true
}

// CartForUpdate returns the cart, creating it, and marks the session modified
func (d *Data) CartForUpdate() *cart.Cart {
	if d.Cart == nil {
		d.Cart = cart.New()
	}
	d.dirty = true
	return d.Cart
}

func (d *Data) ClearCart() {
	d.Cart = nil
	d.dirty = true
}

func (d *Data) AddFlash(kind, message string) {
	d.Pending = append(d.Pending, Flash{Kind: kind, Message: message})
	d.dirty = true
}

// Flashes returns pending flashes and clears them
func (d *Data) Flashes() []Flash {
	if len(d.Pending) == 0 {
		return nil
	}
	out := d.Pending
	d.Pending = nil
	d.dirty = true
	return out
}

// Dirty reports whether the data changed since it was loaded
func (d *Data) Dirty() bool { return d.dirty }

// MarkClean is called by stores after a successful save
func (d *Data) MarkClean() { d.dirty = false }

// Store persists session data under an opaque id
type Store interface {
	// Load returns an empty Data when nothing is stored under id
	Load(ctx context.Context, id string) (*Data, error)
	Save(ctx context.Context, id string, data *Data, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
