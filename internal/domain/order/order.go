// Package order implements the order lifecycle: creation with snapshot
// pricing, item mutation with total recomputation, and the status state
// machine.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/resto-platform/internal/domain/money"
)

// Item is one menu item line within an order. Name and UnitPrice are
// snapshots captured at order-creation time; later menu edits never change
// them retroactively.
type Item struct {
	ID           string
	OrderID      string
	MenuItemID   string
	Name         string
	UnitPrice    decimal.Decimal
	Quantity     int
	LineTotal    decimal.Decimal
	Instructions string
	Status       ItemStatus
}

// Order is a single customer transaction tracked through a status lifecycle
// and a payment balance. TableID, CustomerID and StaffID are optional; empty
// means absent.
type Order struct {
	ID           string
	RestaurantID string
	TableID      string
	CustomerID   string
	StaffID      string
	Number       string
	Type         Type
	Status       Status

	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountReason string
	TipAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentStatus  PaymentStatus

	Notes string
	Items []Item

	OrderedAt   time.Time
	ConfirmedAt *time.Time
	ReadyAt     *time.Time
	ServedAt    *time.Time
	CompletedAt *time.Time
	PaidAt      *time.Time
}

// Item returns the line item with the given ID.
func (o *Order) Item(itemID string) (*Item, bool) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// Recalculate rebuilds the derived totals from the current item set, discount
// and tip. Subtotal is the cent-rounded sum of line totals.
func (o *Order) Recalculate() {
	subtotal := decimal.Zero
	for i := range o.Items {
		o.Items[i].LineTotal = money.LineTotal(o.Items[i].UnitPrice, o.Items[i].Quantity)
		subtotal = subtotal.Add(o.Items[i].LineTotal).Round(2)
	}

	totals := money.Calculate(subtotal, o.DiscountAmount, o.TipAmount)
	o.Subtotal = totals.Subtotal
	o.TaxAmount = totals.Tax
	o.DiscountAmount = totals.Discount
	o.TipAmount = totals.Tip
	o.TotalAmount = totals.Total
}

// stamp records the first entry into a lifecycle status. Timestamps are set
// exactly once; stamping an already-stamped status is a no-op.
func (o *Order) stamp(s Status, now time.Time) {
	switch s {
	case StatusConfirmed:
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
	case StatusReady:
		if o.ReadyAt == nil {
			o.ReadyAt = &now
		}
	case StatusServed:
		if o.ServedAt == nil {
			o.ServedAt = &now
		}
	case StatusCompleted:
		if o.CompletedAt == nil {
			o.CompletedAt = &now
		}
	}
}

// Filter narrows order listings. Zero values mean "no constraint".
type Filter struct {
	RestaurantID string
	Status       Status
	Type         Type
	TableID      string
	StaffID      string
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts the order and all of its items in one transaction and
	// assigns the daily order number (ORD-YYYYMMDD-NNN) from an atomic
	// per-day counter.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	// Update runs fn inside one transaction with the order row locked.
	// fn receives the current order with items; when it returns nil the
	// mutated order (items included) is persisted atomically, and the
	// persisted order is returned. When fn errors, nothing is written.
	Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error)
}

// PaymentChecker reports whether an order holds completed payments. Used by
// Cancel: a paid order must be refunded before it can be cancelled.
type PaymentChecker interface {
	HasCompleted(ctx context.Context, orderID string) (bool, error)
}
