package rest

import (
	"net/http"

	"storefront-be/internal/payment"
	"storefront-be/internal/transport"

	"github.com/go-chi/chi/v5"
)

type PaymentHandler struct {
	svc payment.Service
}

// Initialize is public; an authenticated caller is recorded on the payment.
func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var in payment.InitializeInput
	if err := transport.Decode(w, r, &in); err != nil {
		transport.Error(w, r, err)
		return
	}

	res, err := h.svc.Initialize(r.Context(), userID(r), in)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.Success(w, http.StatusOK, "Payment initialized successfully", res)
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Verify(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.OK(w, v)
}
