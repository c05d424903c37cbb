package services

import (
	"errors"
	"fmt"

	"sweetbite/models"
	"sweetbite/statemachine"
)

var (
	ErrEmptyCart            = errors.New("your cart is empty")
	ErrAddressRequired      = errors.New("a delivery address is required")
	ErrRestaurantNotFound   = errors.New("restaurant not found")
	ErrRestaurantExists     = errors.New("you already have a restaurant")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrMenuItemUnavailable  = errors.New("menu item is not available")
	ErrClaimConflict        = errors.New("order was already claimed or is no longer ready")
	ErrOrderNotUpdated      = errors.New("order could not be updated")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrTransitionNotAllowed = errors.New("status change not allowed")
	ErrEmailTaken           = errors.New("email is already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUserNotFound         = errors.New("user not found")
	ErrValidation           = errors.New("validation failed")
)

// ValidationError carries a message meant for the user. It matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ParseStatus reads a status submitted by a dashboard form
func ParseStatus(raw string) (models.OrderStatus, error) {
	status, ok := models.ParseOrderStatus(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UserMessage returns the text to show for err, or fallback when err is not user-facing
func UserMessage(err error, fallback string) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var te *statemachine.TransitionError
	if errors.As(err, &te) {
		return capitalize(te.Error())
	}
	for _, known := range []error{
		ErrEmptyCart, ErrAddressRequired, ErrRestaurantNotFound, ErrRestaurantExists,
		ErrMenuItemNotFound, ErrMenuItemUnavailable, ErrClaimConflict, ErrOrderNotUpdated,
		ErrInvalidStatus, ErrTransitionNotAllowed, ErrEmailTaken, ErrInvalidCredentials,
	} {
		if errors.Is(err, known) {
			return capitalize(known.Error())
		}
	}
	return fallback
}

// IsUserError reports whether err is an expected outcome rather than a failure
func IsUserError(err error) bool {
	return UserMessage(err, "") != ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
