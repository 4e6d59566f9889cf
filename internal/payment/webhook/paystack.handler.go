package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"storefront-be/internal/apperror"
	"storefront-be/internal/logger"
	"storefront-be/internal/payment"
	"storefront-be/internal/transport"

	"go.uber.org/zap"
)

const (
	SignatureHeader = "x-paystack-signature"
	maxPayloadBytes = 1 << 20
)

var ErrInvalidPayload = apperror.New(apperror.KindValidation, "Invalid webhook payload")

type paystackPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
	} `json:"data"`
}

// Handler receives Paystack event notifications.
type Handler struct {
	secret string
	svc    payment.Service
}

func NewHandler(secret string, svc payment.Service) *Handler {
	return &Handler{secret: secret, svc: svc}
}

// Sign returns the hex HMAC-SHA512 of body, as Paystack sends it.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(
		zap.String("layer", "webhook"),
		zap.String("provider", payment.ProviderPaystack),
	)

	if h.secret == "" {
		transport.Error(w, r, payment.ErrNotConfigured)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		transport.Error(w, r, ErrInvalidPayload)
		return
	}

	var p paystackPayload
	if err := json.Unmarshal(body, &p); err != nil || p.Event == "" {
		log.Warn("unreadable webhook payload")
		transport.Error(w, r, ErrInvalidPayload)
		return
	}

	evt := payment.WebhookEvent{
		Type:           p.Event,
		EventID:        p.Event + ":" + p.Data.ID.String(),
		Reference:      p.Data.Reference,
		Payload:        body,
		SignatureValid: validSignature(h.secret, body, r.Header.Get(SignatureHeader)),
	}

	if err := h.svc.HandleWebhook(r.Context(), evt); err != nil {
		transport.Error(w, r, err)
		return
	}

	transport.Success(w, http.StatusOK, "Webhook processed", nil)
}
