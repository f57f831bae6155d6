package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/resto-platform/internal/domain/catalog"
	"github.com/xenking/resto-platform/internal/domain/order"
	"github.com/xenking/resto-platform/internal/domain/payment"
)

// Amounts are shopspring decimals and serialize as strings ("32.55") so
// clients never see binary-float artifacts.

type orderItemResponse struct {
	ID           string          `json:"id"`
	MenuItemID   string          `json:"menu_item_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
	Instructions string          `json:"special_instructions,omitempty"`
	Status       string          `json:"status"`
}

type orderResponse struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurant_id"`
	TableID      string `json:"table_id,omitempty"`
	CustomerID   string `json:"customer_id,omitempty"`
	StaffID      string `json:"staff_id,omitempty"`
	Number       string `json:"order_number"`
	Type         string `json:"order_type"`
	Status       string `json:"status"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DiscountReason string          `json:"discount_reason,omitempty"`
	TipAmount      decimal.Decimal `json:"tip_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaymentStatus  string          `json:"payment_status"`

	Notes string              `json:"notes,omitempty"`
	Items []orderItemResponse `json:"items"`

	OrderedAt   time.Time  `json:"ordered_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	ServedAt    *time.Time `json:"served_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i := range o.Items {
		it := &o.Items[i]
		items[i] = orderItemResponse{
			ID:           it.ID,
			MenuItemID:   it.MenuItemID,
			Name:         it.Name,
			UnitPrice:    it.UnitPrice,
			Quantity:     it.Quantity,
			LineTotal:    it.LineTotal,
			Instructions: it.Instructions,
			Status:       string(it.Status),
		}
	}

	return orderResponse{
		ID:             o.ID,
		RestaurantID:   o.RestaurantID,
		TableID:        o.TableID,
		CustomerID:     o.CustomerID,
		StaffID:        o.StaffID,
		Number:         o.Number,
		Type:           string(o.Type),
		Status:         string(o.Status),
		Subtotal:       o.Subtotal,
		TaxAmount:      o.TaxAmount,
		DiscountAmount: o.DiscountAmount,
		DiscountReason: o.DiscountReason,
		TipAmount:      o.TipAmount,
		TotalAmount:    o.TotalAmount,
		PaymentStatus:  string(o.PaymentStatus),
		Notes:          o.Notes,
		Items:          items,
		OrderedAt:      o.OrderedAt,
		ConfirmedAt:    o.ConfirmedAt,
		ReadyAt:        o.ReadyAt,
		ServedAt:       o.ServedAt,
		CompletedAt:    o.CompletedAt,
		PaidAt:         o.PaidAt,
	}
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

type paymentResponse struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	Method        string          `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	ProcessedBy   string          `json:"processed_by,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Details       map[string]any  `json:"details,omitempty"`
	ProcessedAt   time.Time       `json:"processed_at"`
}

func toPaymentResponse(p *payment.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Method:        string(p.Method),
		Amount:        p.Amount,
		Status:        string(p.Status),
		ProcessedBy:   p.ProcessedBy,
		TransactionID: p.TransactionID,
		Details:       p.Details,
		ProcessedAt:   p.ProcessedAt,
	}
}

func toPaymentResponses(payments []payment.Payment) []paymentResponse {
	out := make([]paymentResponse, len(payments))
	for i := range payments {
		out[i] = toPaymentResponse(&payments[i])
	}
	return out
}

type summaryResponse struct {
	OrderTotal      decimal.Decimal   `json:"order_total"`
	TotalPaid       decimal.Decimal   `json:"total_paid"`
	TotalRefunded   decimal.Decimal   `json:"total_refunded"`
	RemainingAmount decimal.Decimal   `json:"remaining_amount"`
	IsFullyPaid     bool              `json:"is_fully_paid"`
	IsOverpaid      bool              `json:"is_overpaid"`
	Payments        []paymentResponse `json:"payments"`
}

func toSummaryResponse(s *payment.Summary) summaryResponse {
	return summaryResponse{
		OrderTotal:      s.OrderTotal,
		TotalPaid:       s.TotalPaid,
		TotalRefunded:   s.TotalRefunded,
		RemainingAmount: s.RemainingAmount,
		IsFullyPaid:     s.IsFullyPaid,
		IsOverpaid:      s.IsOverpaid,
		Payments:        toPaymentResponses(s.Payments),
	}
}

type validationResponse struct {
	IsValid         bool            `json:"is_valid"`
	OrderTotal      decimal.Decimal `json:"order_total"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Warnings        []string        `json:"warnings,omitempty"`
}

type statsResponse struct {
	PaymentCount   int                        `json:"payment_count"`
	RefundCount    int                        `json:"refund_count"`
	TotalCollected decimal.Decimal            `json:"total_collected"`
	TotalRefunded  decimal.Decimal            `json:"total_refunded"`
	ByMethod       map[string]decimal.Decimal `json:"by_method"`
}

func toStatsResponse(s *payment.Stats) statsResponse {
	byMethod := make(map[string]decimal.Decimal, len(s.ByMethod))
	for m, amount := range s.ByMethod {
		byMethod[string(m)] = amount
	}
	return statsResponse{
		PaymentCount:   s.PaymentCount,
		RefundCount:    s.RefundCount,
		TotalCollected: s.TotalCollected,
		TotalRefunded:  s.TotalRefunded,
		ByMethod:       byMethod,
	}
}

type menuItemResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Allergens   []string        `json:"allergens"`
	Available   bool            `json:"is_available"`
}

func toMenuItemResponses(items []catalog.MenuItem) []menuItemResponse {
	out := make([]menuItemResponse, len(items))
	for i, mi := range items {
		allergens := mi.Allergens
		if allergens == nil {
			allergens = []string{}
		}
		out[i] = menuItemResponse{
			ID:          mi.ID,
			Name:        mi.Name,
			Description: mi.Description,
			Price:       mi.Price,
			Category:    mi.Category,
			Allergens:   allergens,
			Available:   mi.Available,
		}
	}
	return out
}

type tableResponse struct {
	ID       string `json:"id"`
	Number   int    `json:"table_number"`
	Capacity int    `json:"capacity"`
}

func toTableResponses(tables []catalog.Table) []tableResponse {
	out := make([]tableResponse, len(tables))
	for i, t := range tables {
		out[i] = tableResponse{ID: t.ID, Number: t.Number, Capacity: t.Capacity}
	}
	return out
}
