package rest

import (
	"net/http"
	"strings"

	"storefront-be/internal/order"
	"storefront-be/internal/transport"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	svc order.Service
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in order.CreateOrderInput
	if err := transport.Decode(w, r, &in); err != nil {
		transport.Error(w, r, err)
		return
	}

	o, err := h.svc.CreateOrder(r.Context(), userID(r), in)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.Success(w, http.StatusCreated, "Order created successfully", map[string]any{"order": o})
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := order.ListOptions{
		Page:  utils.AtoiDefault(q.Get("page"), 1),
		Limit: utils.AtoiDefault(q.Get("limit"), order.DefaultListLimit),
	}
	if s := strings.TrimSpace(q.Get("status")); s != "" {
		status := order.Status(strings.ToLower(s))
		opts.Status = &status
	}

	orders, page, err := h.svc.ListOrders(r.Context(), userID(r), opts)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.OK(w, map[string]any{"orders": orders, "pagination": page})
}

func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context(), userID(r))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.OK(w, map[string]any{"stats": stats})
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrder(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.OK(w, map[string]any{"order": o})
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := transport.Decode(w, r, &req); err != nil {
		transport.Error(w, r, err)
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.Success(w, http.StatusOK, "Order status updated", map[string]any{"order": o})
}
