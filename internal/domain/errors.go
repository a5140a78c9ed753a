package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrEmptyOrder          = errors.New("cart is empty or contains only invalid items")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderClosed         = errors.New("order is closed and can no longer be edited")
)

type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %q to %q", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// MenuItemError reports a cart entry that could not be turned into a line item.
type MenuItemError struct {
	ItemID int64
	Err    error
}

func (e *MenuItemError) Error() string {
	return fmt.Sprintf("menu item %d: %v", e.ItemID, e.Err)
}

func (e *MenuItemError) Unwrap() error {
	return e.Err
}
