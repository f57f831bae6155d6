package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context(), chi.URLParam(r, "restaurantID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"items": toMenuItemResponses(items)})
}

type setAvailabilityRequest struct {
	Available *bool `json:"is_available"`
}

func (h *Handler) setMenuItemAvailability(w http.ResponseWriter, r *http.Request) {
	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Available == nil {
		badRequest(w, "is_available is required")
		return
	}

	err := h.catalog.SetItemAvailability(r.Context(),
		chi.URLParam(r, "restaurantID"), chi.URLParam(r, "itemID"), *req.Available)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"is_available": *req.Available})
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.catalog.ListTables(r.Context(), chi.URLParam(r, "restaurantID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"tables": toTableResponses(tables)})
}
