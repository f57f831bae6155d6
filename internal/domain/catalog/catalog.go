// Package catalog defines the menu, table, and restaurant lookups consumed by
// the order core.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrItemNotFound is returned when a requested menu item does not exist.
	ErrItemNotFound = errors.New("menu item not found")
	// ErrRestaurantNotFound is returned when a requested restaurant does not exist.
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrTableNotFound is returned when a requested table does not exist.
	ErrTableNotFound = errors.New("table not found")
)

// MenuItem is a catalog entry available for ordering. Allergens are a native
// string slice in memory; serialization to JSONB happens only at the storage
// boundary.
type MenuItem struct {
	ID           string
	RestaurantID string
	Name         string
	Description  string
	Price        decimal.Decimal
	Category     string
	Allergens    []string
	Available    bool
	CreatedAt    time.Time
}

// Restaurant is a venue that owns tables, menu items, and orders.
type Restaurant struct {
	ID        string
	Name      string
	Address   string
	Phone     string
	CreatedAt time.Time
}

// Table is a physical dining table within a restaurant.
type Table struct {
	ID           string
	RestaurantID string
	Number       int
	Capacity     int
}

// Catalog provides menu item lookups scoped to a restaurant.
type Catalog interface {
	GetItem(ctx context.Context, restaurantID, itemID string) (*MenuItem, error)
}

// TableRegistry answers whether a table belongs to a restaurant.
type TableRegistry interface {
	TableExists(ctx context.Context, restaurantID, tableID string) (bool, error)
}

// Registry answers whether a restaurant exists.
type Registry interface {
	RestaurantExists(ctx context.Context, restaurantID string) (bool, error)
}
