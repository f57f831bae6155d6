package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/resto-platform/internal/domain/money"
	"github.com/xenking/resto-platform/internal/domain/order"
)

// ProcessRequest holds the input for a single payment.
type ProcessRequest struct {
	OrderID       string
	Method        Method
	Amount        decimal.Decimal
	ProcessedBy   string
	TransactionID string
	Details       map[string]any
}

// ProcessResult reports the created payment and the order-level effects.
type ProcessResult struct {
	Payment       *Payment
	PaymentStatus order.PaymentStatus
	OrderModified bool
}

// SplitRequest holds the input for a split payment. NumberOfPayers applies to
// equal splits, Amounts to custom splits.
type SplitRequest struct {
	OrderID        string
	SplitType      SplitType
	Method         Method
	NumberOfPayers int
	Amounts        []decimal.Decimal
	ProcessedBy    string
}

// RefundRequest holds the input for refunding a payment.
type RefundRequest struct {
	PaymentID   string
	Amount      decimal.Decimal
	Reason      string
	ProcessedBy string
}

// Reconciler owns payment creation, validation against the remaining balance,
// split-payment orchestration, refunds, and payment-summary computation.
type Reconciler struct {
	orders   order.Repository
	payments Repository
	now      func() time.Time
}

// NewReconciler creates a Reconciler with the required collaborators.
func NewReconciler(orders order.Repository, payments Repository) *Reconciler {
	return &Reconciler{
		orders:   orders,
		payments: payments,
		now:      time.Now,
	}
}

// ValidateAmount checks a proposed payment amount against the order's
// remaining balance. Overpayment beyond one cent and partial payment are
// flagged as warnings, not errors.
func (r *Reconciler) ValidateAmount(ctx context.Context, orderID string, amount decimal.Decimal) (*Validation, error) {
	o, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	existing, err := r.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	paid := outstandingPaid(existing)
	remaining := o.TotalAmount.Sub(paid).Round(2)

	v := &Validation{
		IsValid:         true,
		OrderTotal:      o.TotalAmount,
		AmountPaid:      paid,
		RemainingAmount: remaining,
	}

	if !amount.IsPositive() {
		v.IsValid = false
		v.Warnings = append(v.Warnings, "payment amount must be greater than zero")
		return v, nil
	}

	switch {
	case amount.GreaterThan(remaining.Add(money.CentTolerance)):
		v.Warnings = append(v.Warnings, "amount exceeds the remaining balance, order will be overpaid")
	case amount.LessThan(remaining.Sub(money.CentTolerance)):
		v.Warnings = append(v.Warnings, "amount is less than the remaining balance, order will be partially paid")
	}
	return v, nil
}

// Process records a single payment against an order in one transaction:
// validates the amount, inserts the payment as completed, and updates the
// order's payment flags. A fully paid order that is already served is
// auto-advanced to completed.
func (r *Reconciler) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	if !req.Method.Valid() {
		return nil, &ValidationError{Field: "method", Message: "must be cash, card, mobile or split"}
	}
	if !req.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "must be greater than zero"}
	}

	result := &ProcessResult{}
	created, err := r.payments.Settle(ctx, req.OrderID, func(o *order.Order, existing []Payment) (*Settlement, error) {
		if o.Status == order.StatusCancelled {
			return nil, ErrOrderCancelled
		}
		if o.PaymentStatus == order.PaymentPaid {
			return nil, ErrOrderAlreadyPaid
		}

		now := r.now()
		p := Payment{
			ID:            uuid.New().String(),
			OrderID:       o.ID,
			Method:        req.Method,
			Amount:        req.Amount.Round(2),
			Status:        StatusCompleted,
			ProcessedBy:   req.ProcessedBy,
			TransactionID: req.TransactionID,
			Details:       req.Details,
			ProcessedAt:   now,
		}

		paid := outstandingPaid(existing).Add(p.Amount).Round(2)
		remaining := o.TotalAmount.Sub(paid)

		st := &Settlement{Payments: []Payment{p}}
		if remaining.LessThanOrEqual(money.CentTolerance) {
			st.PaymentStatus = order.PaymentPaid
			st.PaidAt = &now
			if o.Status == order.StatusServed {
				st.OrderStatus = order.StatusCompleted
			}
		} else {
			st.PaymentStatus = order.PaymentPartial
		}

		result.PaymentStatus = st.PaymentStatus
		result.OrderModified = st.PaymentStatus != o.PaymentStatus || st.OrderStatus != ""
		return st, nil
	})
	if err != nil {
		return nil, wrapProcessing(req.Method, err)
	}

	result.Payment = &created[0]
	return result, nil
}

// ProcessSplit settles an order's full total through multiple payment records
// in a single transaction; if any share fails, no payments are created.
// Equal splits divide the total evenly across payers; any sub-cent remainder
// from the division is not redistributed. Custom splits must sum to the order
// total within one cent. By-item splits are not implemented.
func (r *Reconciler) ProcessSplit(ctx context.Context, req SplitRequest) ([]Payment, error) {
	if !req.Method.Valid() {
		return nil, &ValidationError{Field: "method", Message: "must be cash, card, mobile or split"}
	}

	switch req.SplitType {
	case SplitEqual:
		if req.NumberOfPayers < 2 {
			return nil, &ValidationError{Field: "number_of_payers", Message: "equal split requires at least 2 payers"}
		}
	case SplitCustom:
		if len(req.Amounts) < 2 {
			return nil, &ValidationError{Field: "split_amounts", Message: "custom split requires at least 2 amounts"}
		}
		for _, a := range req.Amounts {
			if !a.IsPositive() {
				return nil, &ValidationError{Field: "split_amounts", Message: "all amounts must be greater than zero"}
			}
		}
	case SplitByItem:
		return nil, ErrSplitByItemNotImplemented
	default:
		return nil, &ValidationError{Field: "split_type", Message: "must be equal, custom or by_item"}
	}

	created, err := r.payments.Settle(ctx, req.OrderID, func(o *order.Order, existing []Payment) (*Settlement, error) {
		if o.Status == order.StatusCancelled {
			return nil, ErrOrderCancelled
		}
		if o.PaymentStatus == order.PaymentPaid {
			return nil, ErrOrderAlreadyPaid
		}

		shares, err := splitShares(req, o.TotalAmount)
		if err != nil {
			return nil, err
		}

		now := r.now()
		payments := make([]Payment, len(shares))
		for i, share := range shares {
			payments[i] = Payment{
				ID:          uuid.New().String(),
				OrderID:     o.ID,
				Method:      req.Method,
				Amount:      share,
				Status:      StatusCompleted,
				ProcessedBy: req.ProcessedBy,
				Details: map[string]any{
					DetailSplitType:  string(req.SplitType),
					DetailSplitShare: i + 1,
					DetailSplitOf:    len(shares),
				},
				ProcessedAt: now,
			}
		}

		// Split payment always targets the full order total.
		st := &Settlement{
			Payments:      payments,
			PaymentStatus: order.PaymentPaid,
			PaidAt:        &now,
		}
		if o.Status == order.StatusServed {
			st.OrderStatus = order.StatusCompleted
		}
		return st, nil
	})
	if err != nil {
		return nil, wrapProcessing(req.Method, err)
	}
	return created, nil
}

// splitShares computes the individual payment amounts for a split request.
func splitShares(req SplitRequest, total decimal.Decimal) ([]decimal.Decimal, error) {
	switch req.SplitType {
	case SplitEqual:
		share := total.Div(decimal.NewFromInt(int64(req.NumberOfPayers))).Round(2)
		shares := make([]decimal.Decimal, req.NumberOfPayers)
		for i := range shares {
			shares[i] = share
		}
		return shares, nil
	case SplitCustom:
		sum := money.Sum(req.Amounts...)
		if sum.LessThan(total.Sub(money.CentTolerance)) {
			return nil, &InsufficientPaymentError{Required: total, Provided: sum}
		}
		if sum.GreaterThan(total.Add(money.CentTolerance)) {
			return nil, &SplitMismatchError{OrderTotal: total, AmountsSum: sum}
		}
		shares := make([]decimal.Decimal, len(req.Amounts))
		for i, a := range req.Amounts {
			shares[i] = a.Round(2)
		}
		return shares, nil
	}
	return nil, ErrSplitByItemNotImplemented
}

// Refund marks a payment refunded and recomputes the owning order's payment
// status in the same transaction. Refunds are rejected on already-refunded,
// failed, or cancelled payments, and when the amount exceeds the original
// payment.
func (r *Reconciler) Refund(ctx context.Context, req RefundRequest) (*Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, &ValidationError{Field: "refund_amount", Message: "must be greater than zero"}
	}
	if req.Reason == "" {
		return nil, &ValidationError{Field: "refund_reason", Message: "is required"}
	}

	return r.payments.Refund(ctx, req.PaymentID, func(p *Payment, o *order.Order, all []Payment) (*RefundChange, error) {
		switch p.Status {
		case StatusRefunded:
			return nil, ErrAlreadyRefunded
		case StatusFailed, StatusCancelled:
			return nil, &RefundNotAllowedError{PaymentID: p.ID, Status: p.Status}
		}
		if req.Amount.GreaterThan(p.Amount) {
			return nil, &RefundExceedsError{PaymentAmount: p.Amount, RefundAmount: req.Amount}
		}

		// Net credit after the refund: every other completed or refunded
		// payment contributes its amount minus any refunded portion; this
		// payment contributes amount minus the requested refund.
		net := decimal.Zero
		for i := range all {
			sibling := &all[i]
			switch {
			case sibling.ID == p.ID:
				net = net.Add(p.Amount.Sub(req.Amount)).Round(2)
			case sibling.Status == StatusCompleted:
				net = net.Add(sibling.Amount).Round(2)
			case sibling.Status == StatusRefunded:
				net = net.Add(sibling.Amount.Sub(sibling.RefundAmount())).Round(2)
			}
		}
		remaining := o.TotalAmount.Sub(net)

		status := o.PaymentStatus
		if remaining.GreaterThan(money.CentTolerance) {
			if net.IsPositive() {
				status = order.PaymentPartial
			} else {
				status = order.PaymentUnpaid
			}
		}

		return &RefundChange{
			Details: map[string]any{
				DetailRefundAmount: req.Amount.Round(2).StringFixed(2),
				DetailRefundReason: req.Reason,
				DetailRefundedBy:   req.ProcessedBy,
				DetailRefundedAt:   r.now().UTC().Format(time.RFC3339),
			},
			PaymentStatus: status,
		}, nil
	})
}

// Summary computes the reconciled financial state of an order. TotalPaid
// covers completed payments plus the original amounts of refunded ones;
// TotalRefunded covers the refunded portions; the remaining balance is
// total - paid + refunded, floored at zero for display but kept signed for
// the overpaid flag.
func (r *Reconciler) Summary(ctx context.Context, orderID string) (*Summary, error) {
	o, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payments, err := r.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	totalPaid := decimal.Zero
	totalRefunded := decimal.Zero
	for i := range payments {
		p := &payments[i]
		switch p.Status {
		case StatusCompleted:
			totalPaid = totalPaid.Add(p.Amount).Round(2)
		case StatusRefunded:
			totalPaid = totalPaid.Add(p.Amount).Round(2)
			totalRefunded = totalRefunded.Add(p.RefundAmount()).Round(2)
		}
	}

	remaining := o.TotalAmount.Sub(totalPaid).Add(totalRefunded).Round(2)

	s := &Summary{
		OrderTotal:      o.TotalAmount,
		TotalPaid:       totalPaid,
		TotalRefunded:   totalRefunded,
		RemainingAmount: remaining,
		IsFullyPaid:     remaining.LessThanOrEqual(money.CentTolerance),
		IsOverpaid:      remaining.LessThan(money.CentTolerance.Neg()),
		Payments:        payments,
	}
	if s.RemainingAmount.IsNegative() {
		s.RemainingAmount = decimal.Zero
	}
	return s, nil
}

// GetByID returns a single payment.
func (r *Reconciler) GetByID(ctx context.Context, id string) (*Payment, error) {
	return r.payments.GetByID(ctx, id)
}

// ListByOrder returns all payments recorded against an order.
func (r *Reconciler) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	return r.payments.ListByOrder(ctx, orderID)
}

// List returns payments matching the filter.
func (r *Reconciler) List(ctx context.Context, f Filter) ([]Payment, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return nil, &ValidationError{Field: "date_range", Message: "start date is after end date"}
	}
	return r.payments.List(ctx, f)
}

// Stats aggregates payments for a restaurant over a date range.
func (r *Reconciler) Stats(ctx context.Context, restaurantID string, from, to time.Time) (*Stats, error) {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, &ValidationError{Field: "date_range", Message: "start date is after end date"}
	}
	return r.payments.Stats(ctx, restaurantID, from, to)
}

// outstandingPaid sums completed and processing payments, rounding at each
// step.
func outstandingPaid(payments []Payment) decimal.Decimal {
	paid := decimal.Zero
	for i := range payments {
		if payments[i].Status == StatusCompleted || payments[i].Status == StatusProcessing {
			paid = paid.Add(payments[i].Amount).Round(2)
		}
	}
	return paid
}

// wrapProcessing wraps storage-level failures in a ProcessingError while
// letting domain errors pass through, even when a lower layer has wrapped
// them with context.
func wrapProcessing(method Method, err error) error {
	var (
		validationErr   *ValidationError
		mismatchErr     *SplitMismatchError
		insufficientErr *InsufficientPaymentError
	)
	if errors.As(err, &validationErr) || errors.As(err, &mismatchErr) ||
		errors.As(err, &insufficientErr) {
		return err
	}
	if errors.Is(err, ErrOrderCancelled) || errors.Is(err, ErrOrderAlreadyPaid) ||
		errors.Is(err, ErrSplitByItemNotImplemented) || errors.Is(err, order.ErrNotFound) {
		return err
	}
	return &ProcessingError{Method: method, Err: err}
}
