package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/resto-platform/internal/domain/order"
	"github.com/xenking/resto-platform/internal/domain/payment"
)

const (
	paymentColumns = `id, order_id, method, amount, status, processed_by,
		transaction_id, details, processed_at`

	getPaymentSQL          = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	getPaymentForUpdateSQL = getPaymentSQL + ` FOR UPDATE`

	listPaymentsByOrderSQL = `SELECT ` + paymentColumns + ` FROM payments
		WHERE order_id = $1 ORDER BY processed_at, id`

	insertPaymentSQL = `INSERT INTO payments (
			id, order_id, method, amount, status, processed_by, transaction_id,
			details, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	hasCompletedPaymentSQL = `SELECT EXISTS (
			SELECT 1 FROM payments WHERE order_id = $1 AND status = 'completed'
		)`

	updateOrderPaymentFlagsSQL = `UPDATE orders SET
			payment_status = $2, paid_at = COALESCE(paid_at, $3)
		WHERE id = $1`

	advanceOrderStatusSQL = `UPDATE orders SET
			status = $2, completed_at = COALESCE(completed_at, $3)
		WHERE id = $1`

	markRefundedSQL = `UPDATE payments SET status = $2, details = $3 WHERE id = $1`

	paymentStatsSQL = `SELECT p.method, p.status, COUNT(*), COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE o.restaurant_id = $1
		  AND ($2::timestamptz IS NULL OR p.processed_at >= $2)
		  AND ($3::timestamptz IS NULL OR p.processed_at < $3)
		GROUP BY p.method, p.status`
)

var _ payment.Repository = (*PaymentRepository)(nil)
var _ order.PaymentChecker = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// GetByID returns a single payment.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := getPayment(ctx, r.pool, id, false)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByOrder returns all payments recorded against an order, oldest first.
func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]payment.Payment, error) {
	return listPayments(ctx, r.pool, orderID)
}

// List returns payments matching the filter, newest first.
func (r *PaymentRepository) List(ctx context.Context, f payment.Filter) ([]payment.Payment, error) {
	sql := `SELECT p.id, p.order_id, p.method, p.amount, p.status, p.processed_by,
		p.transaction_id, p.details, p.processed_at
		FROM payments p JOIN orders o ON o.id = p.order_id WHERE 1=1`
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		sql += fmt.Sprintf(" AND "+cond, len(args))
	}

	if f.OrderID != "" {
		add("p.order_id = $%d", f.OrderID)
	}
	if f.RestaurantID != "" {
		add("o.restaurant_id = $%d", f.RestaurantID)
	}
	if f.Method != "" {
		add("p.method = $%d", f.Method)
	}
	if f.Status != "" {
		add("p.status = $%d", f.Status)
	}
	if !f.From.IsZero() {
		add("p.processed_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("p.processed_at < $%d", f.To)
	}

	sql += " ORDER BY p.processed_at DESC"
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
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	payments, err := pgx.CollectRows(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	return payments, nil
}

// Stats aggregates payments for a restaurant over a date range. Refund totals
// use the original payment amounts.
func (r *PaymentRepository) Stats(ctx context.Context, restaurantID string, from, to time.Time) (*payment.Stats, error) {
	rows, err := r.pool.Query(ctx, paymentStatsSQL, restaurantID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, fmt.Errorf("payment stats for restaurant %q: %w", restaurantID, err)
	}
	defer rows.Close()

	stats := &payment.Stats{ByMethod: make(map[payment.Method]decimal.Decimal)}
	for rows.Next() {
		var (
			method payment.Method
			status payment.Status
			count  int
			sum    decimal.Decimal
		)
		if err := rows.Scan(&method, &status, &count, &sum); err != nil {
			return nil, fmt.Errorf("payment stats for restaurant %q: %w", restaurantID, err)
		}

		switch status {
		case payment.StatusCompleted:
			stats.PaymentCount += count
			stats.TotalCollected = stats.TotalCollected.Add(sum).Round(2)
			stats.ByMethod[method] = stats.ByMethod[method].Add(sum).Round(2)
		case payment.StatusRefunded:
			stats.RefundCount += count
			stats.TotalRefunded = stats.TotalRefunded.Add(sum).Round(2)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payment stats for restaurant %q: %w", restaurantID, err)
	}
	return stats, nil
}

// HasCompleted reports whether the order holds at least one completed payment.
func (r *PaymentRepository) HasCompleted(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, hasCompletedPaymentSQL, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking completed payments for order %q: %w", orderID, err)
	}
	return exists, nil
}

// Settle runs fn inside one transaction with the order row locked, then
// inserts the returned payments and applies the order flag updates. If any
// insert fails the whole transaction rolls back and zero payments exist.
func (r *PaymentRepository) Settle(ctx context.Context, orderID string, fn payment.SettleFunc) ([]payment.Payment, error) {
	var created []payment.Payment
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := getOrder(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		existing, err := listPayments(ctx, tx, orderID)
		if err != nil {
			return err
		}

		st, err := fn(o, existing)
		if err != nil {
			return err
		}

		for i := range st.Payments {
			if err := insertPayment(ctx, tx, &st.Payments[i]); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, updateOrderPaymentFlagsSQL, orderID, st.PaymentStatus, st.PaidAt); err != nil {
			return fmt.Errorf("updating payment flags for order %q: %w", orderID, err)
		}
		if st.OrderStatus != "" {
			var completedAt *time.Time
			if st.OrderStatus == order.StatusCompleted {
				completedAt = st.PaidAt
			}
			if _, err := tx.Exec(ctx, advanceOrderStatusSQL, orderID, st.OrderStatus, completedAt); err != nil {
				return fmt.Errorf("advancing status for order %q: %w", orderID, err)
			}
		}

		created = st.Payments
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Refund runs fn inside one transaction with the owning order and the payment
// row locked, then marks the payment refunded with the returned details and
// applies the recomputed order payment status.
func (r *PaymentRepository) Refund(ctx context.Context, paymentID string, fn payment.RefundFunc) (*payment.Payment, error) {
	var refunded *payment.Payment
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := getPayment(ctx, tx, paymentID, false)
		if err != nil {
			return err
		}

		// Lock order before payment so lock ordering matches Settle.
		o, err := getOrder(ctx, tx, p.OrderID, true)
		if err != nil {
			return err
		}
		p, err = getPayment(ctx, tx, paymentID, true)
		if err != nil {
			return err
		}
		all, err := listPayments(ctx, tx, p.OrderID)
		if err != nil {
			return err
		}

		chg, err := fn(p, o, all)
		if err != nil {
			return err
		}

		merged := make(map[string]any, len(p.Details)+len(chg.Details))
		for k, v := range p.Details {
			merged[k] = v
		}
		for k, v := range chg.Details {
			merged[k] = v
		}
		detailsJSON, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("marshaling refund details: %w", err)
		}

		if _, err := tx.Exec(ctx, markRefundedSQL, p.ID, payment.StatusRefunded, detailsJSON); err != nil {
			return fmt.Errorf("marking payment %q refunded: %w", p.ID, err)
		}
		if _, err := tx.Exec(ctx, updateOrderPaymentFlagsSQL, o.ID, chg.PaymentStatus, nil); err != nil {
			return fmt.Errorf("updating payment flags for order %q: %w", o.ID, err)
		}

		p.Status = payment.StatusRefunded
		p.Details = merged
		refunded = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

func insertPayment(ctx context.Context, tx pgx.Tx, p *payment.Payment) error {
	details := p.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshaling payment details: %w", err)
	}

	_, err = tx.Exec(ctx, insertPaymentSQL,
		p.ID, p.OrderID, p.Method, p.Amount, p.Status, p.ProcessedBy,
		p.TransactionID, detailsJSON, p.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting payment %q: %w", p.ID, err)
	}
	return nil
}

func getPayment(ctx context.Context, q querier, id string, forUpdate bool) (*payment.Payment, error) {
	sql := getPaymentSQL
	if forUpdate {
		sql = getPaymentForUpdateSQL
	}

	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting payment %q: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment %q: %w", id, err)
	}
	return &p, nil
}

func listPayments(ctx context.Context, q querier, orderID string) ([]payment.Payment, error) {
	rows, err := q.Query(ctx, listPaymentsByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing payments for order %q: %w", orderID, err)
	}
	payments, err := pgx.CollectRows(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("listing payments for order %q: %w", orderID, err)
	}
	return payments, nil
}

func scanPayment(row pgx.CollectableRow) (payment.Payment, error) {
	var (
		p           payment.Payment
		detailsJSON []byte
	)
	err := row.Scan(
		&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Status, &p.ProcessedBy,
		&p.TransactionID, &detailsJSON, &p.ProcessedAt,
	)
	if err != nil {
		return p, err
	}
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &p.Details); err != nil {
			return p, fmt.Errorf("unmarshaling details for payment %q: %w", p.ID, err)
		}
	}
	return p, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
