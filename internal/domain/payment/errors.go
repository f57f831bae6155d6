package payment

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for payment operations.
var (
	// ErrNotFound is returned when a requested payment does not exist.
	ErrNotFound = errors.New("payment not found")
	// ErrOrderCancelled is returned when paying a cancelled order.
	ErrOrderCancelled = errors.New("cannot process payment for a cancelled order")
	// ErrOrderAlreadyPaid is returned when paying an order that is already
	// fully paid.
	ErrOrderAlreadyPaid = errors.New("order is already fully paid")
	// ErrAlreadyRefunded is returned when refunding a payment twice.
	ErrAlreadyRefunded = errors.New("payment is already refunded")
	// ErrSplitByItemNotImplemented is returned for the by_item split type.
	ErrSplitByItemNotImplemented = errors.New("by-item split payments are not implemented")
)

// ValidationError indicates malformed caller input on a specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// SplitMismatchError indicates custom split amounts that exceed the order
// total beyond the one-cent tolerance.
type SplitMismatchError struct {
	OrderTotal decimal.Decimal
	AmountsSum decimal.Decimal
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("split amounts sum to %s, order total is %s",
		e.AmountsSum.StringFixed(2), e.OrderTotal.StringFixed(2))
}

// InsufficientPaymentError indicates an amount short of the required total
// where full settlement was requested.
type InsufficientPaymentError struct {
	Required decimal.Decimal
	Provided decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("payment of %s is short of the required %s",
		e.Provided.StringFixed(2), e.Required.StringFixed(2))
}

// RefundNotAllowedError indicates a refund attempted on a payment whose
// status does not permit it.
type RefundNotAllowedError struct {
	PaymentID string
	Status    Status
}

func (e *RefundNotAllowedError) Error() string {
	return fmt.Sprintf("payment %s cannot be refunded in status %s", e.PaymentID, e.Status)
}

// RefundExceedsError indicates a refund amount larger than the original
// payment.
type RefundExceedsError struct {
	PaymentAmount decimal.Decimal
	RefundAmount  decimal.Decimal
}

func (e *RefundExceedsError) Error() string {
	return fmt.Sprintf("refund of %s exceeds original payment of %s",
		e.RefundAmount.StringFixed(2), e.PaymentAmount.StringFixed(2))
}

// ProcessingError wraps a lower-level failure while processing a payment,
// preserving the attempted method.
type ProcessingError struct {
	Method Method
	Err    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %s payment: %v", e.Method, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
