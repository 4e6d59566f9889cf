package rest

import (
	"net/http"

	"storefront-be/internal/cart"
	"storefront-be/internal/transport"

	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	svc cart.Service
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

func cartData(c *cart.Cart) map[string]any {
	return map[string]any{"cart": c}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCart(r.Context(), userID(r))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.OK(w, cartData(c))
}

func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetCartCount(r.Context(), userID(r))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.OK(w, map[string]int{"count": n})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := transport.Decode(w, r, &req); err != nil {
		transport.Error(w, r, err)
		return
	}
	// Quantity defaults to one when omitted.
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	c, err := h.svc.AddItem(r.Context(), userID(r), req.ProductID, qty)
	if err != nil {
		transport.Error(w, r, err)
		return
	}

	msg := "Item added to cart"
	for _, l := range c.Items {
		if l.ProductID == req.ProductID && l.Name != "" {
			msg = l.Name + " added to cart"
			break
		}
	}
	transport.Success(w, http.StatusOK, msg, cartData(c))
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := transport.Decode(w, r, &req); err != nil {
		transport.Error(w, r, err)
		return
	}
	if req.Quantity == nil {
		transport.Error(w, r, cart.ErrInvalidUpdateQuantity)
		return
	}

	c, err := h.svc.UpdateItem(r.Context(), userID(r), chi.URLParam(r, "productId"), *req.Quantity)
	if err != nil {
		transport.Error(w, r, err)
		return
	}

	msg := "Cart item updated"
	if *req.Quantity == 0 {
		msg = "Item removed from cart"
	}
	transport.Success(w, http.StatusOK, msg, cartData(c))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.RemoveItem(r.Context(), userID(r), chi.URLParam(r, "productId"))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.Success(w, http.StatusOK, "Item removed from cart", cartData(c))
}

func (h *CartHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Cleanup(r.Context(), userID(r))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.Success(w, http.StatusOK, "Cart cleaned up successfully", cartData(c))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Clear(r.Context(), userID(r))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.Success(w, http.StatusOK, "Cart cleared successfully", cartData(c))
}
