package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/resto-platform/internal/domain/catalog"
	"github.com/xenking/resto-platform/internal/domain/order"
	"github.com/xenking/resto-platform/internal/domain/payment"
)

// --- In-memory backing store shared by all services under test ---

type memStore struct {
	menu     map[string]catalog.MenuItem
	orders   map[string]*order.Order
	payments map[string][]payment.Payment
	seq      int
}

func newMemStore() *memStore {
	return &memStore{
		menu:     make(map[string]catalog.MenuItem),
		orders:   make(map[string]*order.Order),
		payments: make(map[string][]payment.Payment),
	}
}

// catalog side.

func (m *memStore) GetItem(_ context.Context, restaurantID, itemID string) (*catalog.MenuItem, error) {
	mi, ok := m.menu[itemID]
	if !ok || mi.RestaurantID != restaurantID {
		return nil, catalog.ErrItemNotFound
	}
	return &mi, nil
}

func (m *memStore) ListItems(_ context.Context, restaurantID string) ([]catalog.MenuItem, error) {
	var items []catalog.MenuItem
	for _, mi := range m.menu {
		if mi.RestaurantID == restaurantID {
			items = append(items, mi)
		}
	}
	return items, nil
}

func (m *memStore) SetItemAvailability(_ context.Context, restaurantID, itemID string, available bool) error {
	mi, ok := m.menu[itemID]
	if !ok || mi.RestaurantID != restaurantID {
		return catalog.ErrItemNotFound
	}
	mi.Available = available
	m.menu[itemID] = mi
	return nil
}

func (m *memStore) ListTables(_ context.Context, restaurantID string) ([]catalog.Table, error) {
	return []catalog.Table{{ID: "t1", RestaurantID: restaurantID, Number: 1, Capacity: 4}}, nil
}

func (m *memStore) RestaurantExists(_ context.Context, restaurantID string) (bool, error) {
	return restaurantID == "r1", nil
}

func (m *memStore) TableExists(_ context.Context, restaurantID, tableID string) (bool, error) {
	return restaurantID == "r1" && tableID == "t1", nil
}

// order.Repository.

func (m *memStore) Create(_ context.Context, o *order.Order) error {
	m.seq++
	o.Number = time.Now().Format("ORD-20060102-") + "001"
	m.orders[o.ID] = o
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *memStore) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if f.RestaurantID != "" && o.RestaurantID != f.RestaurantID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	return o, nil
}

// payment repository (wrapped below to avoid method clashes with the order
// side).

func (m *memStore) ListByOrder(_ context.Context, orderID string) ([]payment.Payment, error) {
	return append([]payment.Payment(nil), m.payments[orderID]...), nil
}

func (m *memStore) Stats(_ context.Context, _ string, _, _ time.Time) (*payment.Stats, error) {
	return &payment.Stats{ByMethod: map[payment.Method]decimal.Decimal{}}, nil
}

func (m *memStore) HasCompleted(_ context.Context, orderID string) (bool, error) {
	for _, p := range m.payments[orderID] {
		if p.Status == payment.StatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Settle(_ context.Context, orderID string, fn payment.SettleFunc) ([]payment.Payment, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	st, err := fn(o, m.payments[orderID])
	if err != nil {
		return nil, err
	}
	m.payments[orderID] = append(m.payments[orderID], st.Payments...)
	o.PaymentStatus = st.PaymentStatus
	if st.PaidAt != nil && o.PaidAt == nil {
		o.PaidAt = st.PaidAt
	}
	if st.OrderStatus != "" {
		o.Status = st.OrderStatus
	}
	return st.Payments, nil
}

func (m *memStore) Refund(_ context.Context, paymentID string, fn payment.RefundFunc) (*payment.Payment, error) {
	for orderID, payments := range m.payments {
		for i := range payments {
			if payments[i].ID != paymentID {
				continue
			}
			o := m.orders[orderID]
			chg, err := fn(&payments[i], o, payments)
			if err != nil {
				return nil, err
			}
			p := &m.payments[orderID][i]
			p.Status = payment.StatusRefunded
			if p.Details == nil {
				p.Details = make(map[string]any, len(chg.Details))
			}
			for k, v := range chg.Details {
				p.Details[k] = v
			}
			o.PaymentStatus = chg.PaymentStatus
			return p, nil
		}
	}
	return nil, payment.ErrNotFound
}

type paymentRepo struct{ *memStore }

func (p paymentRepo) GetByID(_ context.Context, id string) (*payment.Payment, error) {
	for _, payments := range p.payments {
		for i := range payments {
			if payments[i].ID == id {
				return &payments[i], nil
			}
		}
	}
	return nil, payment.ErrNotFound
}

func (p paymentRepo) List(_ context.Context, _ payment.Filter) ([]payment.Payment, error) {
	var out []payment.Payment
	for _, payments := range p.payments {
		out = append(out, payments...)
	}
	return out, nil
}

// --- Test server ---

type testServer struct {
	store  *memStore
	router *chi.Mux
}

func newTestServer() *testServer {
	store := newMemStore()
	store.menu["burger"] = catalog.MenuItem{
		ID: "burger", RestaurantID: "r1", Name: "Burger",
		Price: decimal.RequireFromString("10.00"), Category: "mains", Available: true,
	}
	store.menu["pasta"] = catalog.MenuItem{
		ID: "pasta", RestaurantID: "r1", Name: "Pasta",
		Price: decimal.RequireFromString("15.00"), Category: "mains", Available: true,
	}

	orders := order.NewService(store, store, store, store, store)
	payments := payment.NewReconciler(store, paymentRepo{store})

	router := chi.NewRouter()
	NewHandler(orders, payments, store).RegisterRoutes(router)

	return &testServer{store: store, router: router}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func (ts *testServer) createOrder(t *testing.T) string {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"restaurant_id": "r1",
		"table_id":      "t1",
		"order_type":    "dine_in",
		"items": []map[string]any{
			{"menu_item_id": "burger", "quantity": 2},
			{"menu_item_id": "pasta", "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody(t, w)["id"].(string)
}

// --- Order endpoints ---

func TestCreateOrder(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"restaurant_id": "r1",
		"table_id":      "t1",
		"order_type":    "dine_in",
		"items": []map[string]any{
			{"menu_item_id": "burger", "quantity": 2},
			{"menu_item_id": "pasta", "quantity": 1},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "unpaid", body["payment_status"])
	assert.Equal(t, "35", body["subtotal"])
	assert.Equal(t, "2.98", body["tax_amount"])
	assert.Equal(t, "37.98", body["total_amount"])
	assert.Len(t, body["items"], 2)
}

func TestCreateOrder_UnknownRestaurant(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"restaurant_id": "nope",
		"order_type":    "takeout",
		"items":         []map[string]any{{"menu_item_id": "burger", "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"restaurant_id": "r1",
		"order_type":    "takeout",
		"items":         []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString("{nope"))
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodGet, "/api/v1/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOrder_Discount(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPatch, "/api/v1/orders/"+id, map[string]any{
		"discount_amount": "5.00",
		"discount_reason": "loyalty",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "2.55", body["tax_amount"])
	assert.Equal(t, "32.55", body["total_amount"])
}

func TestUpdateOrderStatus_InvalidTransition(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/orders/"+id+"/status", map[string]any{
		"status": "ready",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateOrderStatus_Valid(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/orders/"+id+"/status", map[string]any{
		"status": "confirmed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "confirmed", decodeBody(t, w)["status"])
}

func TestAddOrderItem(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/orders/"+id+"/items", map[string]any{
		"menu_item_id": "pasta",
		"quantity":     2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "65", body["subtotal"])
	assert.Equal(t, "70.53", body["total_amount"])
}

func TestRemoveOrderItem_Unknown(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodDelete, "/api/v1/orders/"+id+"/items/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelOrder(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/orders/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decodeBody(t, w)["status"])
}

func TestListOrders(t *testing.T) {
	ts := newTestServer()
	ts.createOrder(t)
	ts.createOrder(t)

	w := ts.do(t, http.MethodGet, "/api/v1/orders?restaurant_id=r1&status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["orders"], 2)
}

func TestListOrders_BadDate(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodGet, "/api/v1/orders?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Payment endpoints ---

func TestProcessPayment_Full(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/payments", map[string]any{
		"order_id":       id,
		"payment_method": "card",
		"amount":         "37.98",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "paid", body["payment_status"])

	w = ts.do(t, http.MethodGet, "/api/v1/orders/"+id+"/payments/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decodeBody(t, w)
	assert.Equal(t, true, summary["is_fully_paid"])
	assert.Equal(t, "0", summary["remaining_amount"])
}

func TestProcessPayment_CancelledOrder(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)
	ts.do(t, http.MethodPost, "/api/v1/orders/"+id+"/cancel", nil)

	w := ts.do(t, http.MethodPost, "/api/v1/payments", map[string]any{
		"order_id":       id,
		"payment_method": "cash",
		"amount":         "37.98",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProcessPayment_InvalidMethod(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/payments", map[string]any{
		"order_id":       id,
		"payment_method": "cheque",
		"amount":         "1.00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSplitPayment_ByItemNotImplemented(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/payments/split", map[string]any{
		"order_id":       id,
		"split_type":     "by_item",
		"payment_method": "card",
	})
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestSplitPayment_Custom(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/payments/split", map[string]any{
		"order_id":       id,
		"split_type":     "custom",
		"payment_method": "card",
		"amounts":        []string{"20.00", "17.98"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, decodeBody(t, w)["payments"], 2)
}

func TestSplitPayment_Mismatch(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/payments/split", map[string]any{
		"order_id":       id,
		"split_type":     "custom",
		"payment_method": "card",
		"amounts":        []string{"20.00", "10.00"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRefundPayment(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/payments", map[string]any{
		"order_id":       id,
		"payment_method": "card",
		"amount":         "37.98",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	paymentID := decodeBody(t, w)["payment"].(map[string]any)["id"].(string)

	w = ts.do(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/refund", map[string]any{
		"amount": "10.00",
		"reason": "cold food",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "refunded", decodeBody(t, w)["status"])

	// Second refund on the same payment is rejected.
	w = ts.do(t, http.MethodPost, "/api/v1/payments/"+paymentID+"/refund", map[string]any{
		"amount": "5.00",
		"reason": "again",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRefundPayment_MissingReason(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPost, "/api/v1/payments/p1/refund", map[string]any{
		"amount": "5.00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidatePayment(t *testing.T) {
	ts := newTestServer()
	id := ts.createOrder(t)

	w := ts.do(t, http.MethodPost, "/api/v1/orders/"+id+"/payments/validate", map[string]any{
		"amount": "10.00",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["is_valid"])
	assert.NotEmpty(t, body["warnings"])
}

// --- Catalog endpoints ---

func TestListMenu(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodGet, "/api/v1/restaurants/r1/menu", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["items"], 2)
}

func TestSetMenuItemAvailability(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPatch, "/api/v1/restaurants/r1/menu/burger/availability", map[string]any{
		"is_available": false,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Unavailable items cannot be ordered.
	w = ts.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"restaurant_id": "r1",
		"order_type":    "takeout",
		"items":         []map[string]any{{"menu_item_id": "burger", "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListTables(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodGet, "/api/v1/restaurants/r1/tables", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["tables"], 1)
}
