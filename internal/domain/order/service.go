package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/resto-platform/internal/domain/catalog"
	"github.com/xenking/resto-platform/internal/domain/money"
)

// CreateItem is one requested line in a new order.
type CreateItem struct {
	MenuItemID   string
	Quantity     int
	Instructions string
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	RestaurantID string
	TableID      string
	CustomerID   string
	StaffID      string
	Type         Type
	Items        []CreateItem
	Notes        string
}

// AddItemRequest adds a menu item to an existing order.
type AddItemRequest struct {
	MenuItemID   string
	Quantity     int
	Instructions string
}

// UpdateItemRequest mutates a line item. Nil fields are left unchanged.
type UpdateItemRequest struct {
	Quantity     *int
	Instructions *string
	Status       *ItemStatus
}

// UpdateRequest mutates order-level financial fields and notes. Nil fields
// are left unchanged; any change to discount or tip triggers a full total
// recomputation.
type UpdateRequest struct {
	DiscountAmount *decimal.Decimal
	DiscountReason *string
	TipAmount      *decimal.Decimal
	Notes          *string
}

// Service owns order creation, item mutation, status transitions, and
// recomputation of totals after any mutation.
type Service struct {
	restaurants catalog.Registry
	tables      catalog.TableRegistry
	menu        catalog.Catalog
	orders      Repository
	payments    PaymentChecker
	now         func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	restaurants catalog.Registry,
	tables catalog.TableRegistry,
	menu catalog.Catalog,
	orders Repository,
	payments PaymentChecker,
) *Service {
	return &Service{
		restaurants: restaurants,
		tables:      tables,
		menu:        menu,
		orders:      orders,
		payments:    payments,
		now:         time.Now,
	}
}

// Create validates the request, snapshots menu prices, computes totals, and
// persists the order with all items in one transaction. The created order
// starts as pending/unpaid.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if !req.Type.Valid() {
		return nil, &ValidationError{Field: "order_type", Message: "must be dine_in, takeout or delivery"}
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, &InvalidQuantityError{MenuItemID: item.MenuItemID}
		}
	}

	ok, err := s.restaurants.RestaurantExists(ctx, req.RestaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "check restaurant")
	}
	if !ok {
		return nil, catalog.ErrRestaurantNotFound
	}

	if req.TableID != "" {
		ok, err := s.tables.TableExists(ctx, req.RestaurantID, req.TableID)
		if err != nil {
			return nil, errors.Wrap(err, "check table")
		}
		if !ok {
			return nil, catalog.ErrTableNotFound
		}
	}

	now := s.now()
	orderID := uuid.New().String()

	// Snapshot name and price from the catalog at this instant.
	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, reqItem := range req.Items {
		mi, err := s.menu.GetItem(ctx, req.RestaurantID, reqItem.MenuItemID)
		if err != nil {
			return nil, err
		}
		if !mi.Available {
			return nil, &ItemUnavailableError{MenuItemID: mi.ID, Name: mi.Name}
		}

		lineTotal := money.LineTotal(mi.Price, reqItem.Quantity)
		items[i] = Item{
			ID:           uuid.New().String(),
			OrderID:      orderID,
			MenuItemID:   mi.ID,
			Name:         mi.Name,
			UnitPrice:    mi.Price,
			Quantity:     reqItem.Quantity,
			LineTotal:    lineTotal,
			Instructions: reqItem.Instructions,
			Status:       ItemOrdered,
		}
		subtotal = subtotal.Add(lineTotal).Round(2)
	}

	totals := money.Calculate(subtotal, decimal.Zero, decimal.Zero)

	o := &Order{
		ID:             orderID,
		RestaurantID:   req.RestaurantID,
		TableID:        req.TableID,
		CustomerID:     req.CustomerID,
		StaffID:        req.StaffID,
		Type:           req.Type,
		Status:         StatusPending,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.Tax,
		DiscountAmount: totals.Discount,
		TipAmount:      totals.Tip,
		TotalAmount:    totals.Total,
		PaymentStatus:  PaymentUnpaid,
		Notes:          req.Notes,
		Items:          items,
		OrderedAt:      now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// GetByID returns an order with its items.
func (s *Service) GetByID(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return nil, &ValidationError{Field: "date_range", Message: "start date is after end date"}
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "unknown status"}
	}
	return s.orders.List(ctx, f)
}

// AddItem appends a menu item to a non-terminal order, snapshotting the
// current catalog price, and recomputes totals in the same transaction.
func (s *Service) AddItem(ctx context.Context, orderID string, req AddItemRequest) (*Order, error) {
	if req.Quantity < 1 {
		return nil, &InvalidQuantityError{MenuItemID: req.MenuItemID}
	}

	return s.orders.Update(ctx, orderID, func(o *Order) error {
		if o.Status.Terminal() {
			return &NotModifiableError{ID: o.ID, Status: o.Status}
		}

		mi, err := s.menu.GetItem(ctx, o.RestaurantID, req.MenuItemID)
		if err != nil {
			return err
		}
		if !mi.Available {
			return &ItemUnavailableError{MenuItemID: mi.ID, Name: mi.Name}
		}

		o.Items = append(o.Items, Item{
			ID:           uuid.New().String(),
			OrderID:      o.ID,
			MenuItemID:   mi.ID,
			Name:         mi.Name,
			UnitPrice:    mi.Price,
			Quantity:     req.Quantity,
			Instructions: req.Instructions,
			Status:       ItemOrdered,
		})
		o.Recalculate()
		return nil
	})
}

// RemoveItem deletes a line item from a non-terminal order and recomputes
// totals in the same transaction.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID string) (*Order, error) {
	return s.orders.Update(ctx, orderID, func(o *Order) error {
		if o.Status.Terminal() {
			return &NotModifiableError{ID: o.ID, Status: o.Status}
		}

		idx := -1
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrItemNotFound
		}

		o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
		o.Recalculate()
		return nil
	})
}

// UpdateItem mutates a line item's quantity, instructions, or status on a
// non-terminal order, recomputing totals when the quantity changes.
func (s *Service) UpdateItem(ctx context.Context, orderID, itemID string, req UpdateItemRequest) (*Order, error) {
	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Message: "must be at least 1"}
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "unknown item status"}
	}

	return s.orders.Update(ctx, orderID, func(o *Order) error {
		if o.Status.Terminal() {
			return &NotModifiableError{ID: o.ID, Status: o.Status}
		}

		item, ok := o.Item(itemID)
		if !ok {
			return ErrItemNotFound
		}

		if req.Quantity != nil {
			item.Quantity = *req.Quantity
		}
		if req.Instructions != nil {
			item.Instructions = *req.Instructions
		}
		if req.Status != nil {
			item.Status = *req.Status
		}

		o.Recalculate()
		return nil
	})
}

// UpdateStatus moves an order along the status graph, stamping the lifecycle
// timestamp on first entry. Transitions not present in the graph are rejected
// and leave the order unchanged. Moving to cancelled goes through Cancel so
// the completed-payment guard applies on every path.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, &ValidationError{Field: "status", Message: "unknown status"}
	}
	if next == StatusCancelled {
		return s.Cancel(ctx, orderID)
	}

	return s.orders.Update(ctx, orderID, func(o *Order) error {
		if !o.Status.CanTransitionTo(next) {
			return &InvalidTransitionError{From: o.Status, To: next}
		}
		o.Status = next
		o.stamp(next, s.now())
		return nil
	})
}

// Cancel moves an order to cancelled. Rejected on terminal orders and on
// orders holding completed payments (those must be refunded first).
func (s *Service) Cancel(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.Update(ctx, orderID, func(o *Order) error {
		if o.Status.Terminal() {
			return &NotModifiableError{ID: o.ID, Status: o.Status}
		}

		paid, err := s.payments.HasCompleted(ctx, o.ID)
		if err != nil {
			return errors.Wrap(err, "check payments")
		}
		if paid {
			return ErrHasCompletedPayments
		}

		o.Status = StatusCancelled
		return nil
	})
}

// Update changes discount, tip, or notes on a non-terminal order. Discount
// and tip changes trigger a full recomputation of tax and total against the
// unchanged subtotal.
func (s *Service) Update(ctx context.Context, orderID string, req UpdateRequest) (*Order, error) {
	if req.DiscountAmount != nil && req.DiscountAmount.IsNegative() {
		return nil, &ValidationError{Field: "discount_amount", Message: "must not be negative"}
	}
	if req.TipAmount != nil && req.TipAmount.IsNegative() {
		return nil, &ValidationError{Field: "tip_amount", Message: "must not be negative"}
	}

	return s.orders.Update(ctx, orderID, func(o *Order) error {
		if o.Status.Terminal() {
			return &NotModifiableError{ID: o.ID, Status: o.Status}
		}

		if req.DiscountAmount != nil {
			o.DiscountAmount = *req.DiscountAmount
		}
		if req.DiscountReason != nil {
			o.DiscountReason = *req.DiscountReason
		}
		if req.TipAmount != nil {
			o.TipAmount = *req.TipAmount
		}
		if req.Notes != nil {
			o.Notes = *req.Notes
		}

		o.Recalculate()
		return nil
	})
}
