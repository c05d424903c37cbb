// Package cart holds the per-session shopping cart: selected menu items
// grouped by restaurant, waiting for checkout.
package cart

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Item is what the cart needs to know about a menu item when it is added
type Item struct {
	MenuItemID      uint
	RestaurantID    uint
	RestaurantName  string
	RestaurantImage string
	Name            string
	Price           decimal.Decimal
	Image           string
}

type Line struct {
	MenuItemID uint            `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Image      string          `json:"image"`
}

func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Bucket is one restaurant's share of the cart
type Bucket struct {
	RestaurantID uint   `json:"restaurant_id"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	Lines        []Line `json:"lines"`
}

func (b *Bucket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.Lines {
		total = total.Add(l.Total())
	}
	return total
}

type Cart struct {
	Restaurants map[uint]*Bucket `json:"restaurants,omitempty"`
}

func New() *Cart {
	return &Cart{Restaurants: map[uint]*Bucket{}}
}

// Add puts qty of item in the cart, merging with an existing line for the same item
func (c *Cart) Add(item Item, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if c.Restaurants == nil {
		c.Restaurants = map[uint]*Bucket{}
	}
	b, ok := c.Restaurants[item.RestaurantID]
	if !ok {
		b = &Bucket{
			RestaurantID: item.RestaurantID,
			Name:         item.RestaurantName,
			Image:        item.RestaurantImage,
		}
		c.Restaurants[item.RestaurantID] = b
	}
	for i := range b.Lines {
		if b.Lines[i].MenuItemID == item.MenuItemID {
			b.Lines[i].Quantity += qty
			return nil
		}
	}
	b.Lines = append(b.Lines, Line{
		MenuItemID: item.MenuItemID,
		Name:       item.Name,
		Price:      item.Price,
		Quantity:   qty,
		Image:      item.Image,
	})
	return nil
}

// Remove deletes the whole line for a menu item. A bucket left empty is dropped.
func (c *Cart) Remove(restaurantID, menuItemID uint) bool {
	b, ok := c.Restaurants[restaurantID]
	if !ok {
		return false
	}
	for i, l := range b.Lines {
		if l.MenuItemID != menuItemID {
			continue
		}
		b.Lines = append(b.Lines[:i], b.Lines[i+1:]...)
		if len(b.Lines) == 0 {
			delete(c.Restaurants, restaurantID)
		}
		return true
	}
	return false
}

func (c *Cart) Clear() {
	c.Restaurants = map[uint]*Bucket{}
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Restaurants) == 0
}

// RestaurantIDs returns the restaurants in the cart in ascending order
func (c *Cart) RestaurantIDs() []uint {
	if c == nil {
		return nil
	}
	ids := make([]uint, 0, len(c.Restaurants))
	for id := range c.Restaurants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Buckets returns the buckets ordered by restaurant id
func (c *Cart) Buckets() []*Bucket {
	ids := c.RestaurantIDs()
	out := make([]*Bucket, len(ids))
	for i, id := range ids {
		out[i] = c.Restaurants[id]
	}
	return out
}

func (c *Cart) Total(restaurantID uint) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	if b, ok := c.Restaurants[restaurantID]; ok {
		return b.Total()
	}
	return decimal.Zero
}

func (c *Cart) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, b := range c.Buckets() {
		total = total.Add(b.Total())
	}
	return total
}

// ItemCount is the number of units across all lines
func (c *Cart) ItemCount() int {
	n := 0
	for _, b := range c.Buckets() {
		for _, l := range b.Lines {
			n += l.Quantity
		}
	}
	return n
}

// Quantity returns how many units of a menu item are in the cart
func (c *Cart) Quantity(restaurantID, menuItemID uint) int {
	if c == nil {
		return 0
	}
	b, ok := c.Restaurants[restaurantID]
	if !ok {
		return 0
	}
	for _, l := range b.Lines {
		if l.MenuItemID == menuItemID {
			return l.Quantity
		}
	}
	return 0
}
