// Package handler exposes the order, payment, and catalog operations over
// HTTP. Handlers parse and validate the boundary types, delegate to the
// domain services, and map domain errors to status codes.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/resto-platform/internal/domain/catalog"
	"github.com/xenking/resto-platform/internal/domain/order"
	"github.com/xenking/resto-platform/internal/domain/payment"
)

// Catalog is the read/admin surface of the menu and floor plan needed by the
// HTTP layer.
type Catalog interface {
	ListItems(ctx context.Context, restaurantID string) ([]catalog.MenuItem, error)
	SetItemAvailability(ctx context.Context, restaurantID, itemID string, available bool) error
	ListTables(ctx context.Context, restaurantID string) ([]catalog.Table, error)
}

// Handler holds the domain services behind the HTTP API.
type Handler struct {
	orders   *order.Service
	payments *payment.Reconciler
	catalog  Catalog
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, payments *payment.Reconciler, cat Catalog) *Handler {
	return &Handler{
		orders:   orders,
		payments: payments,
		catalog:  cat,
	}
}

// RegisterRoutes mounts the API under /api/v1.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Patch("/{id}", h.updateOrder)
			r.Post("/{id}/status", h.updateOrderStatus)
			r.Post("/{id}/cancel", h.cancelOrder)

			r.Post("/{id}/items", h.addOrderItem)
			r.Patch("/{id}/items/{itemID}", h.updateOrderItem)
			r.Delete("/{id}/items/{itemID}", h.removeOrderItem)

			r.Get("/{id}/payments", h.listOrderPayments)
			r.Get("/{id}/payments/summary", h.paymentSummary)
			r.Post("/{id}/payments/validate", h.validatePayment)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.processPayment)
			r.Post("/split", h.processSplitPayment)
			r.Get("/", h.listPayments)
			r.Get("/{id}", h.getPayment)
			r.Post("/{id}/refund", h.refundPayment)
		})

		r.Route("/restaurants/{restaurantID}", func(r chi.Router) {
			r.Get("/menu", h.listMenu)
			r.Patch("/menu/{itemID}/availability", h.setMenuItemAvailability)
			r.Get("/tables", h.listTables)
			r.Get("/payments/stats", h.paymentStats)
		})
	})
}
