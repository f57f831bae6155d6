package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/resto-platform/internal/domain/order"
)

const (
	allocOrderSeqSQL = `INSERT INTO order_counters (day, seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = order_counters.seq + 1
		RETURNING seq`

	insertOrderSQL = `INSERT INTO orders (
			id, restaurant_id, table_id, customer_id, staff_id, order_number,
			order_type, status, subtotal, tax_amount, discount_amount,
			discount_reason, tip_amount, total_amount, payment_status, notes,
			ordered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	insertOrderItemSQL = `INSERT INTO order_items (
			id, order_id, menu_item_id, name, unit_price, quantity, line_total,
			instructions, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	orderColumns = `id, restaurant_id, table_id, customer_id, staff_id, order_number,
		order_type, status, subtotal, tax_amount, discount_amount, discount_reason,
		tip_amount, total_amount, payment_status, notes,
		ordered_at, confirmed_at, ready_at, served_at, completed_at, paid_at`

	getOrderSQL          = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	listOrderItemsSQL = `SELECT id, order_id, menu_item_id, name, unit_price, quantity,
		line_total, instructions, status
		FROM order_items WHERE order_id = $1 ORDER BY id`

	updateOrderSQL = `UPDATE orders SET
			status = $2, subtotal = $3, tax_amount = $4, discount_amount = $5,
			discount_reason = $6, tip_amount = $7, total_amount = $8,
			payment_status = $9, notes = $10,
			confirmed_at = $11, ready_at = $12, served_at = $13,
			completed_at = $14, paid_at = $15
		WHERE id = $1`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order and all of its items in one transaction. The
// order number is allocated from the per-day counter row inside the same
// transaction, so concurrent creations can never mint the same number.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		day := o.OrderedAt.UTC()

		var seq int
		if err := tx.QueryRow(ctx, allocOrderSeqSQL, day).Scan(&seq); err != nil {
			return fmt.Errorf("allocating order number: %w", err)
		}
		o.Number = fmt.Sprintf("ORD-%s-%03d", day.Format("20060102"), seq)

		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.RestaurantID, nullStr(o.TableID), nullStr(o.CustomerID), nullStr(o.StaffID),
			o.Number, o.Type, o.Status, o.Subtotal, o.TaxAmount, o.DiscountAmount,
			o.DiscountReason, o.TipAmount, o.TotalAmount, o.PaymentStatus, o.Notes,
			o.OrderedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		return insertItems(ctx, tx, o.Items)
	})
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return getOrder(ctx, r.pool, id, false)
}

// List returns orders matching the filter, newest first, items included.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		sql += fmt.Sprintf(" AND "+cond, len(args))
	}

	if f.RestaurantID != "" {
		add("restaurant_id = $%d", f.RestaurantID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Type != "" {
		add("order_type = $%d", f.Type)
	}
	if f.TableID != "" {
		add("table_id = $%d", f.TableID)
	}
	if f.StaffID != "" {
		add("staff_id = $%d", f.StaffID)
	}
	if !f.From.IsZero() {
		add("ordered_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("ordered_at < $%d", f.To)
	}

	sql += " ORDER BY ordered_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	for i := range orders {
		items, err := listItems(ctx, r.pool, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// Update runs fn inside one transaction with the order row locked. On
// success the order row is rewritten and the item set replaced atomically;
// on error nothing is written.
func (r *OrderRepository) Update(ctx context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	var out *order.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := getOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		if err := persistOrder(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// persistOrder rewrites the order row and replaces its item set. Item IDs
// survive the replacement, so snapshots and per-item statuses are preserved.
func persistOrder(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	_, err := tx.Exec(ctx, updateOrderSQL,
		o.ID, o.Status, o.Subtotal, o.TaxAmount, o.DiscountAmount,
		o.DiscountReason, o.TipAmount, o.TotalAmount, o.PaymentStatus, o.Notes,
		o.ConfirmedAt, o.ReadyAt, o.ServedAt, o.CompletedAt, o.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}

	if _, err := tx.Exec(ctx, deleteOrderItemsSQL, o.ID); err != nil {
		return fmt.Errorf("replacing items for order %q: %w", o.ID, err)
	}
	return insertItems(ctx, tx, o.Items)
}

func insertItems(ctx context.Context, tx pgx.Tx, items []order.Item) error {
	for i := range items {
		it := &items[i]
		_, err := tx.Exec(ctx, insertOrderItemSQL,
			it.ID, it.OrderID, it.MenuItemID, it.Name, it.UnitPrice,
			it.Quantity, it.LineTotal, it.Instructions, it.Status,
		)
		if err != nil {
			return fmt.Errorf("inserting item %q: %w", it.ID, err)
		}
	}
	return nil
}

// getOrder loads an order and its items, optionally locking the order row.
func getOrder(ctx context.Context, q querier, id string, forUpdate bool) (*order.Order, error) {
	sql := getOrderSQL
	if forUpdate {
		sql = getOrderForUpdateSQL
	}

	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	items, err := listItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func listItems(ctx context.Context, q querier, orderID string) ([]order.Item, error) {
	rows, err := q.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing items for order %q: %w", orderID, err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("listing items for order %q: %w", orderID, err)
	}
	return items, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                            order.Order
		tableID, customerID, staffID *string
		confirmed, ready             *time.Time
		served, completed, paid      *time.Time
	)
	err := row.Scan(
		&o.ID, &o.RestaurantID, &tableID, &customerID, &staffID, &o.Number,
		&o.Type, &o.Status, &o.Subtotal, &o.TaxAmount, &o.DiscountAmount,
		&o.DiscountReason, &o.TipAmount, &o.TotalAmount, &o.PaymentStatus, &o.Notes,
		&o.OrderedAt, &confirmed, &ready, &served, &completed, &paid,
	)
	o.TableID = strVal(tableID)
	o.CustomerID = strVal(customerID)
	o.StaffID = strVal(staffID)
	o.ConfirmedAt = confirmed
	o.ReadyAt = ready
	o.ServedAt = served
	o.CompletedAt = completed
	o.PaidAt = paid
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.UnitPrice,
		&it.Quantity, &it.LineTotal, &it.Instructions, &it.Status,
	)
	return it, err
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
