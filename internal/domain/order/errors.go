package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order operations.
var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyItems is returned when an order is created without items.
	ErrEmptyItems = errors.New("at least one item is required")
	// ErrItemNotFound is returned when a line item does not belong to the order.
	ErrItemNotFound = errors.New("order item not found")
	// ErrHasCompletedPayments is returned when cancelling an order that has
	// completed payments; those must be refunded first.
	ErrHasCompletedPayments = errors.New("order has completed payments, refund before cancelling")
)

// ValidationError indicates malformed caller input on a specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	MenuItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for menu item %s", e.MenuItemID)
}

// ItemUnavailableError indicates a menu item that is currently not orderable.
type ItemUnavailableError struct {
	MenuItemID string
	Name       string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("menu item %s (%s) is not available", e.Name, e.MenuItemID)
}

// InvalidTransitionError indicates a status change not present in the
// transition graph.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// NotModifiableError indicates a mutation attempted on a terminal order.
type NotModifiableError struct {
	ID     string
	Status Status
}

func (e *NotModifiableError) Error() string {
	return fmt.Sprintf("order %s is %s and can no longer be modified", e.ID, e.Status)
}
