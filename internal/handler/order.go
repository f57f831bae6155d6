package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/resto-platform/internal/domain/order"
)

type createOrderItemRequest struct {
	MenuItemID   string `json:"menu_item_id"`
	Quantity     int    `json:"quantity"`
	Instructions string `json:"special_instructions"`
}

type createOrderRequest struct {
	RestaurantID string                   `json:"restaurant_id"`
	TableID      string                   `json:"table_id"`
	CustomerID   string                   `json:"customer_id"`
	StaffID      string                   `json:"staff_id"`
	Type         string                   `json:"order_type"`
	Items        []createOrderItemRequest `json:"items"`
	Notes        string                   `json:"notes"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.RestaurantID == "" {
		badRequest(w, "restaurant_id is required")
		return
	}

	items := make([]order.CreateItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CreateItem{
			MenuItemID:   it.MenuItemID,
			Quantity:     it.Quantity,
			Instructions: it.Instructions,
		}
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		RestaurantID: req.RestaurantID,
		TableID:      req.TableID,
		CustomerID:   req.CustomerID,
		StaffID:      req.StaffID,
		Type:         order.Type(req.Type),
		Items:        items,
		Notes:        req.Notes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilterFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"orders": toOrderResponses(orders)})
}

type updateOrderRequest struct {
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
	DiscountReason *string          `json:"discount_reason"`
	TipAmount      *decimal.Decimal `json:"tip_amount"`
	Notes          *string          `json:"notes"`
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	o, err := h.orders.Update(r.Context(), chi.URLParam(r, "id"), order.UpdateRequest{
		DiscountAmount: req.DiscountAmount,
		DiscountReason: req.DiscountReason,
		TipAmount:      req.TipAmount,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponse(o))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), order.Status(req.Status))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponse(o))
}

type addItemRequest struct {
	MenuItemID   string `json:"menu_item_id"`
	Quantity     int    `json:"quantity"`
	Instructions string `json:"special_instructions"`
}

func (h *Handler) addOrderItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	o, err := h.orders.AddItem(r.Context(), chi.URLParam(r, "id"), order.AddItemRequest{
		MenuItemID:   req.MenuItemID,
		Quantity:     req.Quantity,
		Instructions: req.Instructions,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponse(o))
}

type updateItemRequest struct {
	Quantity     *int    `json:"quantity"`
	Instructions *string `json:"special_instructions"`
	Status       *string `json:"status"`
}

func (h *Handler) updateOrderItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	domainReq := order.UpdateItemRequest{
		Quantity:     req.Quantity,
		Instructions: req.Instructions,
	}
	if req.Status != nil {
		st := order.ItemStatus(*req.Status)
		domainReq.Status = &st
	}

	o, err := h.orders.UpdateItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), domainReq)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) removeOrderItem(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponse(o))
}

// orderFilterFromQuery parses list filters from the query string. Dates accept
// RFC 3339 or plain YYYY-MM-DD.
func orderFilterFromQuery(r *http.Request) (order.Filter, error) {
	q := r.URL.Query()
	f := order.Filter{
		RestaurantID: q.Get("restaurant_id"),
		Status:       order.Status(q.Get("status")),
		Type:         order.Type(q.Get("order_type")),
		TableID:      q.Get("table_id"),
		StaffID:      q.Get("staff_id"),
	}

	var err error
	if f.From, err = parseTimeParam(q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseTimeParam(q.Get("to")); err != nil {
		return f, err
	}
	if f.Limit, err = parseIntParam(q.Get("limit")); err != nil {
		return f, err
	}
	if f.Offset, err = parseIntParam(q.Get("offset")); err != nil {
		return f, err
	}
	return f, nil
}

func parseTimeParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &paramError{param: s, reason: "must be RFC 3339 or YYYY-MM-DD"}
	}
	return t, nil
}

func parseIntParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, &paramError{param: s, reason: "must be a non-negative integer"}
	}
	return n, nil
}

type paramError struct {
	param  string
	reason string
}

func (e *paramError) Error() string {
	return "invalid parameter " + strconv.Quote(e.param) + ": " + e.reason
}
