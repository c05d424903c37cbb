package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of an order
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "placed"
	StatusReady     OrderStatus = "ready"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusDelivered OrderStatus = "delivered"
)

// Statuses lists the lifecycle in order
var Statuses = []OrderStatus{StatusPlaced, StatusReady, StatusPickedUp, StatusDelivered}

// ParseOrderStatus rejects anything outside the lifecycle
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Label is the human readable form shown on dashboards
func (s OrderStatus) Label() string {
	switch s {
	case StatusPlaced:
		return "Placed"
	case StatusReady:
		return "Ready"
	case StatusPickedUp:
		return "Picked Up"
	case StatusDelivered:
		return "Delivered"
	}
	return string(s)
}

type Order struct {
	ID              uint                 `json:"id" gorm:"primaryKey"`
	CustomerID      uint                 `json:"customer_id" gorm:"index;not null"`
	Customer        User                 `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	RestaurantID    uint                 `json:"restaurant_id" gorm:"index;not null"`
	Restaurant      Restaurant           `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	DeliveryID      *uint                `json:"delivery_id" gorm:"index"`
	Delivery        *User                `json:"delivery,omitempty" gorm:"foreignKey:DeliveryID"`
	Status          OrderStatus          `json:"status" gorm:"size:20;index;not null;default:'placed'"`
	Total           decimal.Decimal      `json:"total" gorm:"type:decimal(10,2);not null"`
	DeliveryAddress string               `json:"delivery_address" gorm:"not null"`
	Latitude        *float64             `json:"latitude"`
	Longitude       *float64             `json:"longitude"`
	Items           []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory   []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time            `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type OrderItem struct {
	ID      uint `json:"id" gorm:"primaryKey"`
	OrderID uint `json:"order_id" gorm:"index;not null"`
	// MenuItemID is nulled when the menu item is deleted; the snapshot fields keep the line readable
	MenuItemID *uint           `json:"menu_item_id" gorm:"index"`
	MenuItem   *MenuItem       `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID;constraint:OnDelete:SET NULL"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity" gorm:"not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
}

// LineTotal is price × quantity
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"index;not null"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
