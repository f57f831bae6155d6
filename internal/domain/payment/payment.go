// Package payment implements payment processing and reconciliation against an
// order's balance: single and split payments, refunds, and summary
// computation.
package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/resto-platform/internal/domain/order"
)

// Method is how a payment was made.
type Method string

const (
	MethodCash   Method = "cash"
	MethodCard   Method = "card"
	MethodMobile Method = "mobile"
	MethodSplit  Method = "split"
)

// Valid reports whether m is a known payment method.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodMobile, MethodSplit:
		return true
	}
	return false
}

// Status is the lifecycle state of a single payment record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"
)

// SplitType selects how a split payment divides the order total.
type SplitType string

const (
	SplitEqual  SplitType = "equal"
	SplitCustom SplitType = "custom"
	SplitByItem SplitType = "by_item"
)

// Detail keys used in the free-form details map.
const (
	DetailRefundAmount = "refund_amount"
	DetailRefundReason = "refund_reason"
	DetailRefundedBy   = "refunded_by"
	DetailRefundedAt   = "refunded_at"
	DetailSplitType    = "split_type"
	DetailSplitShare   = "split_share"
	DetailSplitOf      = "split_of"
)

// Payment is a single recorded transfer of funds against an order's balance.
// Rows are never mutated after creation except for the status transition to
// refunded (which also records refund metadata in Details).
type Payment struct {
	ID            string
	OrderID       string
	Method        Method
	Amount        decimal.Decimal
	Status        Status
	ProcessedBy   string
	TransactionID string
	Details       map[string]any
	ProcessedAt   time.Time
}

// RefundAmount returns the refunded portion recorded in Details. For refunded
// payments without an explicit amount the full payment amount is assumed.
func (p *Payment) RefundAmount() decimal.Decimal {
	if p.Status != StatusRefunded {
		return decimal.Zero
	}
	if raw, ok := p.Details[DetailRefundAmount].(string); ok {
		if d, err := decimal.NewFromString(raw); err == nil {
			return d
		}
	}
	return p.Amount
}

// Summary is the reconciled financial state of an order.
type Summary struct {
	OrderTotal      decimal.Decimal
	TotalPaid       decimal.Decimal
	TotalRefunded   decimal.Decimal
	RemainingAmount decimal.Decimal
	IsFullyPaid     bool
	IsOverpaid      bool
	Payments        []Payment
}

// Validation is the result of checking a proposed payment amount against the
// order's remaining balance. Warnings flag overpayment or partial payment
// without rejecting the amount.
type Validation struct {
	IsValid         bool
	OrderTotal      decimal.Decimal
	AmountPaid      decimal.Decimal
	RemainingAmount decimal.Decimal
	Warnings        []string
}

// Stats aggregates payments for a restaurant over a date range.
type Stats struct {
	PaymentCount   int
	RefundCount    int
	TotalCollected decimal.Decimal
	TotalRefunded  decimal.Decimal
	ByMethod       map[Method]decimal.Decimal
}

// Filter narrows payment listings. Zero values mean "no constraint".
type Filter struct {
	OrderID      string
	RestaurantID string
	Method       Method
	Status       Status
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

// Settlement is the outcome of a settle closure: payment rows to insert plus
// the order-level flags to write in the same transaction.
type Settlement struct {
	Payments      []Payment
	PaymentStatus order.PaymentStatus
	// OrderStatus, when non-empty, advances the order status (auto-complete
	// of served orders on full payment).
	OrderStatus order.Status
	PaidAt      *time.Time
}

// SettleFunc inspects the locked order and its current payments and decides
// the settlement. Returning an error aborts the transaction with no writes.
type SettleFunc func(o *order.Order, existing []Payment) (*Settlement, error)

// RefundChange is the outcome of a refund closure: refund metadata for the
// payment row plus the recomputed order-level payment status.
type RefundChange struct {
	Details       map[string]any
	PaymentStatus order.PaymentStatus
}

// RefundFunc inspects the locked payment, its owning order, and all sibling
// payments, and decides the refund. Returning an error aborts the transaction.
type RefundFunc func(p *Payment, o *order.Order, all []Payment) (*RefundChange, error)

// Repository defines persistence operations for payments. Settle and Refund
// run their closures inside one transaction with the owning order row locked,
// so concurrent settlements of the same order are serialized and can never
// both observe a stale balance.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
	List(ctx context.Context, f Filter) ([]Payment, error)
	Stats(ctx context.Context, restaurantID string, from, to time.Time) (*Stats, error)
	HasCompleted(ctx context.Context, orderID string) (bool, error)
	// Settle inserts the returned payments and applies the order flag
	// updates atomically; all-or-nothing.
	Settle(ctx context.Context, orderID string, fn SettleFunc) ([]Payment, error)
	// Refund marks the payment refunded with the returned details and
	// applies the order payment status atomically.
	Refund(ctx context.Context, paymentID string, fn RefundFunc) (*Payment, error)
}
