package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleCustomer   UserRole = "customer"
	RoleRestaurant UserRole = "restaurant"
	RoleDelivery   UserRole = "delivery"
)

// Roles lists every role a user can sign up with
var Roles = []UserRole{RoleCustomer, RoleRestaurant, RoleDelivery}

// ParseRole returns the role named by s
func ParseRole(s string) (UserRole, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// HomePath is the dashboard a role lands on after login
func (r UserRole) HomePath() string {
	switch r {
	case RoleCustomer:
		return "/customer"
	case RoleRestaurant:
		return "/restaurant"
	case RoleDelivery:
		return "/delivery"
	}
	return "/login"
}

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"size:50;not null"`
	Email        string    `json:"email" gorm:"size:50;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         UserRole  `json:"role" gorm:"size:20;not null;default:'customer'"`
	Phone        string    `json:"phone" gorm:"size:30"`
	Address      string    `json:"address"`
	Image        string    `json:"image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
