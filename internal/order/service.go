package order

import (
	"context"
	"strings"

	"storefront-be/internal/apperror"
	"storefront-be/internal/events"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/utils"
	"storefront-be/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartInvalidator drops cached cart state after checkout empties a cart
// and moves stock.
type CartInvalidator interface {
	Invalidate(ctx context.Context, userID uint)
	CatalogChanged(ctx context.Context) error
}

type Service interface {
	CreateOrder(ctx context.Context, userID uint, input CreateOrderInput) (*Order, error)
	ListOrders(ctx context.Context, userID uint, opts ListOptions) ([]Order, utils.Pagination, error)
	GetOrder(ctx context.Context, userID uint, id string) (*Order, error)
	GetStats(ctx context.Context, userID uint) (*Stats, error)
	UpdateStatus(ctx context.Context, id string, status string) (*Order, error)

	// GetOwned loads an order that must belong to userID. Used by payment
	// initialization.
	GetOwned(ctx context.Context, userID uint, id string) (*Order, error)
	AttachPaymentReference(ctx context.Context, userID uint, id, reference string) error
	MarkPaymentByReference(ctx context.Context, reference string, outcome PaymentOutcome) error
}

type service struct {
	repo      Repository
	carts     CartInvalidator
	publisher events.Publisher
}

func NewService(repo Repository, carts CartInvalidator, publisher events.Publisher) Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &service{
		repo:      repo,
		carts:     carts,
		publisher: publisher,
	}
}

func normalizeInput(in CreateOrderInput) CreateOrderInput {
	a := &in.ShippingAddress
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Address = strings.TrimSpace(a.Address)
	a.City = strings.TrimSpace(a.City)
	a.Region = strings.TrimSpace(a.Region)
	in.PaymentReference = utils.TrimmedPtr(in.PaymentReference)
	in.Notes = utils.TrimmedPtr(in.Notes)
	return in
}

func (s *service) CreateOrder(ctx context.Context, userID uint, input CreateOrderInput) (*Order, error) {
	if userID == 0 {
		return nil, ErrUserNotAuthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
	)

	input = normalizeInput(input)
	if err := validation.StructWithMessage(input, ErrIncompleteAddress.Message); err != nil {
		metrics.CheckoutRejected.WithLabelValues(string(apperror.KindValidation)).Inc()
		return nil, err
	}

	o, err := s.repo.CreateFromCart(ctx, userID, input)
	if err != nil {
		kind := apperror.KindOf(err)
		metrics.CheckoutRejected.WithLabelValues(string(kind)).Inc()
		if kind == apperror.KindInternal {
			log.Error("checkout failed", zap.Error(err))
		} else {
			log.Info("checkout rejected", zap.Error(err))
		}
		return nil, apperror.Wrap(err, "order.CreateOrder")
	}

	if s.carts != nil {
		s.carts.Invalidate(ctx, userID)
		// Stock moved, so other carts showing these products are stale.
		_ = s.carts.CatalogChanged(ctx)
	}

	metrics.OrdersCreated.WithLabelValues(string(o.PaymentStatus)).Inc()
	revenue, _ := o.TotalAmount.Float64()
	metrics.OrderRevenue.WithLabelValues(o.Currency).Add(revenue)

	events.PublishAsync(ctx, s.publisher, events.New(events.OrderCreated, o.ID, map[string]any{
		"orderId":       o.ID,
		"orderNumber":   o.OrderNumber,
		"userId":        o.UserID,
		"totalAmount":   o.TotalAmount,
		"currency":      o.Currency,
		"status":        o.Status,
		"paymentStatus": o.PaymentStatus,
		"itemCount":     len(o.Items),
	}))

	log.Info("checkout completed",
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, userID uint, opts ListOptions) ([]Order, utils.Pagination, error) {
	if userID == 0 {
		return nil, utils.Pagination{}, ErrUserNotAuthenticated
	}
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, utils.Pagination{}, ErrInvalidStatus
	}

	opts.Page, opts.Limit = utils.NormalizePage(opts.Page, opts.Limit, DefaultListLimit, MaxListLimit)

	orders, total, err := s.repo.List(ctx, userID, opts)
	if err != nil {
		return nil, utils.Pagination{}, apperror.Wrap(err, "order.ListOrders")
	}
	return orders, utils.NewPagination(opts.Page, opts.Limit, total), nil
}

func (s *service) GetOrder(ctx context.Context, userID uint, id string) (*Order, error) {
	return s.GetOwned(ctx, userID, id)
}

func (s *service) GetOwned(ctx context.Context, userID uint, id string) (*Order, error) {
	if userID == 0 {
		return nil, ErrUserNotAuthenticated
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Wrap(err, "order.GetOrder")
	}
	// Someone else's order is reported as missing.
	if o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) GetStats(ctx context.Context, userID uint) (*Stats, error) {
	if userID == 0 {
		return nil, ErrUserNotAuthenticated
	}
	st, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, "order.GetStats")
	}
	return st, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, status string) (*Order, error) {
	to := Status(strings.ToLower(strings.TrimSpace(status)))
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateStatus"),
		zap.String("order_id", id),
	)

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Wrap(err, "order.UpdateStatus")
	}

	from := o.Status
	if !CanTransition(from, to) {
		return nil, invalidTransition(from, to)
	}

	if err := s.repo.UpdateStatus(ctx, id, from, to); err != nil {
		return nil, apperror.Wrap(err, "order.UpdateStatus")
	}
	o.Status = to

	events.PublishAsync(ctx, s.publisher, events.New(events.OrderStatusChanged, o.ID, map[string]any{
		"orderId":     o.ID,
		"orderNumber": o.OrderNumber,
		"from":        from,
		"to":          to,
	}))

	log.Info("order status updated",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return o, nil
}

func (s *service) AttachPaymentReference(ctx context.Context, userID uint, id, reference string) error {
	if err := s.repo.AttachPaymentReference(ctx, id, userID, reference); err != nil {
		return apperror.Wrap(err, "order.AttachPaymentReference")
	}
	return nil
}

// MarkPaymentByReference is safe to repeat. A reference with no order, or
// an order already in the target state, is a no-op.
func (s *service) MarkPaymentByReference(ctx context.Context, reference string, outcome PaymentOutcome) error {
	id, changed, err := s.repo.MarkPaymentByReference(ctx, reference, outcome)
	if err != nil {
		return apperror.Wrap(err, "order.MarkPaymentByReference")
	}
	if changed {
		logger.FromCtx(ctx).Info("order payment status updated",
			zap.String("order_id", id),
			zap.String("reference", reference),
			zap.String("outcome", string(outcome)),
		)
	}
	return nil
}
