package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/resto-platform/internal/domain/payment"
)

type processPaymentRequest struct {
	OrderID       string          `json:"order_id"`
	Method        string          `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	ProcessedBy   string          `json:"processed_by"`
	TransactionID string          `json:"transaction_id"`
	Details       map[string]any  `json:"details"`
}

func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.OrderID == "" {
		badRequest(w, "order_id is required")
		return
	}

	res, err := h.payments.Process(r.Context(), payment.ProcessRequest{
		OrderID:       req.OrderID,
		Method:        payment.Method(req.Method),
		Amount:        req.Amount,
		ProcessedBy:   req.ProcessedBy,
		TransactionID: req.TransactionID,
		Details:       req.Details,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{
		"payment":        toPaymentResponse(res.Payment),
		"payment_status": string(res.PaymentStatus),
	})
}

type splitPaymentRequest struct {
	OrderID        string            `json:"order_id"`
	SplitType      string            `json:"split_type"`
	Method         string            `json:"payment_method"`
	NumberOfPayers int               `json:"number_of_payers"`
	Amounts        []decimal.Decimal `json:"amounts"`
	ProcessedBy    string            `json:"processed_by"`
}

func (h *Handler) processSplitPayment(w http.ResponseWriter, r *http.Request) {
	var req splitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.OrderID == "" {
		badRequest(w, "order_id is required")
		return
	}

	payments, err := h.payments.ProcessSplit(r.Context(), payment.SplitRequest{
		OrderID:        req.OrderID,
		SplitType:      payment.SplitType(req.SplitType),
		Method:         payment.Method(req.Method),
		NumberOfPayers: req.NumberOfPayers,
		Amounts:        req.Amounts,
		ProcessedBy:    req.ProcessedBy,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"payments": toPaymentResponses(payments)})
}

type refundPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	ProcessedBy string          `json:"processed_by"`
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	p, err := h.payments.Refund(r.Context(), payment.RefundRequest{
		PaymentID:   chi.URLParam(r, "id"),
		Amount:      req.Amount,
		Reason:      req.Reason,
		ProcessedBy: req.ProcessedBy,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.payments.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := payment.Filter{
		OrderID:      q.Get("order_id"),
		RestaurantID: q.Get("restaurant_id"),
		Method:       payment.Method(q.Get("payment_method")),
		Status:       payment.Status(q.Get("status")),
	}

	var err error
	if f.From, err = parseTimeParam(q.Get("from")); err != nil {
		badRequest(w, err.Error())
		return
	}
	if f.To, err = parseTimeParam(q.Get("to")); err != nil {
		badRequest(w, err.Error())
		return
	}
	if f.Limit, err = parseIntParam(q.Get("limit")); err != nil {
		badRequest(w, err.Error())
		return
	}
	if f.Offset, err = parseIntParam(q.Get("offset")); err != nil {
		badRequest(w, err.Error())
		return
	}

	payments, err := h.payments.List(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"payments": toPaymentResponses(payments)})
}

func (h *Handler) listOrderPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.ListByOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"payments": toPaymentResponses(payments)})
}

func (h *Handler) paymentSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.payments.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toSummaryResponse(s))
}

type validatePaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) validatePayment(w http.ResponseWriter, r *http.Request) {
	var req validatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	v, err := h.payments.ValidateAmount(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, validationResponse{
		IsValid:         v.IsValid,
		OrderTotal:      v.OrderTotal,
		AmountPaid:      v.AmountPaid,
		RemainingAmount: v.RemainingAmount,
		Warnings:        v.Warnings,
	})
}

func (h *Handler) paymentStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := parseTimeParam(q.Get("from"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	to, err := parseTimeParam(q.Get("to"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	s, err := h.payments.Stats(r.Context(), chi.URLParam(r, "restaurantID"), from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toStatsResponse(s))
}
