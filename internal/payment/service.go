package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-be/internal/apperror"
	"storefront-be/internal/cart"
	"storefront-be/internal/events"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"
	"storefront-be/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCurrency = "GHS"

// Orders is the part of the order workflow payments correlate with.
type Orders interface {
	GetOwned(ctx context.Context, userID uint, id string) (*order.Order, error)
	AttachPaymentReference(ctx context.Context, userID uint, id, reference string) error
	MarkPaymentByReference(ctx context.Context, reference string, outcome order.PaymentOutcome) error
}

type CartClearer interface {
	Clear(ctx context.Context, userID uint) (*cart.Cart, error)
}

type Service interface {
	// Initialize starts a provider transaction. userID is zero for guests.
	Initialize(ctx context.Context, userID uint, input InitializeInput) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
	HandleWebhook(ctx context.Context, evt WebhookEvent) error
}

type service struct {
	repo        Repository
	gateway     Gateway
	orders      Orders
	carts       CartClearer
	publisher   events.Publisher
	callbackURL string
	newRef      func() string
}

func NewService(
	repo Repository,
	gateway Gateway,
	orders Orders,
	carts CartClearer,
	publisher events.Publisher,
	callbackURL string,
) Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &service{
		repo:        repo,
		gateway:     gateway,
		orders:      orders,
		carts:       carts,
		publisher:   publisher,
		callbackURL: callbackURL,
		newRef:      NewReference,
	}
}

// NewReference returns storefront_<unix millis>_<9 random chars>.
func NewReference() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("storefront_%d_%s", time.Now().UnixMilli(), random)
}

// reservedMetadata keys are set by the server only. Client values for them
// are dropped.
var reservedMetadata = map[string]struct{}{
	"user_id":       {},
	"checkout_type": {},
	"order_id":      {},
}

func (s *service) Initialize(ctx context.Context, userID uint, in InitializeInput) (*InitializeResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Initialize"),
	)

	in.Email = strings.TrimSpace(in.Email)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.Reference = strings.TrimSpace(in.Reference)
	in.OrderID = strings.TrimSpace(in.OrderID)

	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if in.Currency == "" {
		in.Currency = defaultCurrency
	}
	if in.Reference == "" {
		in.Reference = s.newRef()
	}

	// 1. Work out what is being paid for
	meta := make(map[string]any, len(in.Metadata)+6)
	for k, v := range in.Metadata {
		if _, reserved := reservedMetadata[k]; reserved {
			continue
		}
		meta[k] = v
	}
	meta["customerName"] = in.CustomerName
	meta["phone"] = in.Phone

	var (
		checkoutType CheckoutType
		orderID      *string
		amount       = in.Amount
	)

	switch {
	case in.OrderID != "":
		if userID == 0 {
			return nil, ErrAuthRequired
		}
		o, err := s.orders.GetOwned(ctx, userID, in.OrderID)
		if err != nil {
			return nil, err
		}
		if o.PaymentStatus == order.PaymentPaid {
			return nil, order.ErrAlreadyPaid
		}
		checkoutType = CheckoutOrder
		amount = o.TotalAmount
		in.Currency = o.Currency
		orderID = &o.ID
		meta["order_id"] = o.ID
		meta["orderNumber"] = o.OrderNumber

	case in.ProductID != "" && len(in.CartItems) > 0:
		return nil, apperror.Validation("Validation failed", map[string]string{
			"productId": "cannot be combined with cartItems",
		})

	case in.ProductID != "":
		checkoutType = CheckoutProduct
		meta["productId"] = in.ProductID

	case len(in.CartItems) > 0:
		checkoutType = CheckoutCart
		count := 0
		for _, it := range in.CartItems {
			count += it.Quantity
		}
		meta["cartItems"] = in.CartItems
		meta["totalAmount"] = in.Amount
		meta["itemCount"] = count

	default:
		return nil, apperror.Validation("Validation failed", map[string]string{
			"productId": "is required when cartItems is missing",
		})
	}

	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	meta["checkout_type"] = string(checkoutType)
	var uid *uint
	if userID != 0 {
		meta["user_id"] = userID
		uid = &userID
	}

	callback := in.CallbackURL
	if callback == "" {
		callback = s.callbackURL
	}

	// 2. Ask the provider for a checkout session
	res, err := s.gateway.Initialize(ctx, InitializeRequest{
		Email:       in.Email,
		AmountMinor: ToMinorUnits(amount),
		Currency:    in.Currency,
		Reference:   in.Reference,
		CallbackURL: callback,
		Metadata:    meta,
	})
	if err != nil {
		log.Warn("payment initialization failed", zap.String("reference", in.Reference), zap.Error(err))
		return nil, providerError("payment.Initialize", "Payment initialization failed", err)
	}
	if res.Reference == "" {
		res.Reference = in.Reference
	}

	// 3. Record it locally and link the order
	rec := &Payment{
		Reference:        res.Reference,
		UserID:           uid,
		OrderID:          orderID,
		Email:            in.Email,
		Amount:           amount,
		Currency:         in.Currency,
		CheckoutType:     checkoutType,
		Status:           StatusInitialized,
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Metadata:         meta,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, apperror.Wrap(err, "payment.Initialize")
	}

	if orderID != nil {
		if err := s.orders.AttachPaymentReference(ctx, userID, *orderID, res.Reference); err != nil {
			return nil, err
		}
	}

	log.Info("payment initialized",
		zap.String("reference", res.Reference),
		zap.String("checkout_type", string(checkoutType)),
		zap.String("amount", amount.StringFixed(2)),
	)
	return res, nil
}

// providerError converts a gateway failure into an external error. Errors
// that already carry a kind keep it.
func providerError(op, msg string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return apperror.Wrap(err, op)
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		msg = pe.Message
	}
	return apperror.External(op, msg, err)
}

func (s *service) Verify(ctx context.Context, reference string) (*Verification, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrReferenceRequired
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Verify"),
		zap.String("reference", reference),
	)

	v, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues("error").Inc()
		log.Warn("payment verification failed", zap.Error(err))
		return nil, providerError("payment.Verify", "Payment verification failed", err)
	}
	if v.Reference == "" {
		v.Reference = reference
	}
	metrics.PaymentVerifications.WithLabelValues(string(v.Status)).Inc()

	switch v.Status {
	case StatusSuccess:
		if err := s.confirm(ctx, v); err != nil {
			return nil, err
		}
	case StatusFailed, StatusAbandoned, StatusReversed:
		if _, err := s.repo.UpdateStatus(ctx, v.Reference, v.Status, nil); err != nil {
			return nil, apperror.Wrap(err, "payment.Verify")
		}
		if err := s.orders.MarkPaymentByReference(ctx, v.Reference, order.OutcomeFailed); err != nil {
			return nil, err
		}
	default:
		log.Info("payment not settled yet", zap.String("status", string(v.Status)))
	}

	return v, nil
}

// confirm applies a successful verification. Every step is idempotent so a
// repeated verify or webhook changes nothing.
func (s *service) confirm(ctx context.Context, v *Verification) error {
	log := logger.FromCtx(ctx).With(zap.String("reference", v.Reference))

	changed, err := s.repo.UpdateStatus(ctx, v.Reference, StatusSuccess, v.PaidAt)
	if err != nil {
		return apperror.Wrap(err, "payment.confirm")
	}

	if err := s.orders.MarkPaymentByReference(ctx, v.Reference, order.OutcomePaid); err != nil {
		return err
	}

	// Who paid and for what come from the record written at initialization.
	// Metadata echoed by the provider is client influenced.
	rec, err := s.repo.GetByReference(ctx, v.Reference)
	if err != nil {
		log.Warn("payment record lookup failed", zap.Error(err))
	}
	if rec != nil && rec.CheckoutType == CheckoutCart && rec.UserID != nil {
		userID := *rec.UserID
		// A failed clear must not fail a verified payment.
		if _, err := s.carts.Clear(ctx, userID); err != nil {
			log.Error("failed to clear cart after payment", zap.Uint("user_id", userID), zap.Error(err))
		} else {
			log.Info("cart cleared after payment", zap.Uint("user_id", userID))
		}
	}

	if changed {
		events.PublishAsync(ctx, s.publisher, events.New(events.PaymentConfirmed, v.Reference, map[string]any{
			"reference": v.Reference,
			"amount":    v.Amount,
			"currency":  v.Currency,
			"channel":   v.Channel,
			"paidAt":    v.PaidAt,
		}))
	}
	return nil
}

func (s *service) HandleWebhook(ctx context.Context, evt WebhookEvent) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "HandleWebhook"),
		zap.String("event", evt.Type),
		zap.String("reference", evt.Reference),
	)

	id, handled, err := s.repo.SaveWebhook(ctx, ProviderPaystack, evt)
	if err != nil {
		return apperror.Wrap(err, "payment.HandleWebhook")
	}
	if !evt.SignatureValid {
		log.Warn("webhook rejected: invalid signature")
		return ErrInvalidSignature
	}
	if handled {
		log.Info("webhook already processed")
		return nil
	}

	if evt.Type != "charge.success" || evt.Reference == "" {
		if err := s.repo.MarkWebhookProcessed(ctx, id); err != nil {
			log.Error("failed to mark webhook processed", zap.Error(err))
		}
		return nil
	}

	// The provider's verify endpoint is the source of truth, not the payload.
	if _, err := s.Verify(ctx, evt.Reference); err != nil {
		if markErr := s.repo.MarkWebhookFailed(ctx, id, err.Error()); markErr != nil {
			log.Error("failed to mark webhook failed", zap.Error(markErr))
		}
		return err
	}

	if err := s.repo.MarkWebhookProcessed(ctx, id); err != nil {
		log.Error("failed to mark webhook processed", zap.Error(err))
	}
	return nil
}
