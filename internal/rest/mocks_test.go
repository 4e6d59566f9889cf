package rest

import (
	"context"

	"storefront-be/internal/cart"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"github.com/stretchr/testify/mock"
)

type MockUserService struct{ mock.Mock }

func (m *MockUserService) Register(ctx context.Context, in user.RegisterInput) (*user.AuthResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.AuthResult), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, in user.LoginInput) (*user.AuthResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.AuthResult), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uint) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockProductService struct{ mock.Mock }

func (m *MockProductService) List(ctx context.Context, opts product.ListOptions) ([]product.Product, utils.Pagination, error) {
	args := m.Called(ctx, opts)
	products, _ := args.Get(0).([]product.Product)
	return products, args.Get(1).(utils.Pagination), args.Error(2)
}

func (m *MockProductService) ListByCategory(ctx context.Context, c product.Category, page, limit int) ([]product.Product, utils.Pagination, error) {
	args := m.Called(ctx, c, page, limit)
	products, _ := args.Get(0).([]product.Product)
	return products, args.Get(1).(utils.Pagination), args.Error(2)
}

func (m *MockProductService) GetByID(ctx context.Context, id string) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, in product.ProductInput) (*product.Product, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, id string, in product.UpdateProductInput) (*product.Product, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockCartService struct{ mock.Mock }

func (m *MockCartService) cartResult(args mock.Arguments) (*cart.Cart, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, userID uint) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID))
}

func (m *MockCartService) GetCartCount(ctx context.Context, userID uint) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, userID uint, productID string, quantity int) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID, productID, quantity))
}

func (m *MockCartService) UpdateItem(ctx context.Context, userID uint, productID string, quantity int) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID, productID, quantity))
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID uint, productID string) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID, productID))
}

func (m *MockCartService) Cleanup(ctx context.Context, userID uint) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID))
}

func (m *MockCartService) Clear(ctx context.Context, userID uint) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID))
}

func (m *MockCartService) Invalidate(ctx context.Context, userID uint) {
	m.Called(ctx, userID)
}

func (m *MockCartService) CatalogChanged(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockOrderService struct{ mock.Mock }

func (m *MockOrderService) orderResult(args mock.Arguments) (*order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, userID uint, in order.CreateOrderInput) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, userID, in))
}

func (m *MockOrderService) ListOrders(ctx context.Context, userID uint, opts order.ListOptions) ([]order.Order, utils.Pagination, error) {
	args := m.Called(ctx, userID, opts)
	orders, _ := args.Get(0).([]order.Order)
	return orders, args.Get(1).(utils.Pagination), args.Error(2)
}

func (m *MockOrderService) GetOrder(ctx context.Context, userID uint, id string) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, userID, id))
}

func (m *MockOrderService) GetStats(ctx context.Context, userID uint) (*order.Stats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Stats), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id string, status string) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, id, status))
}

func (m *MockOrderService) GetOwned(ctx context.Context, userID uint, id string) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, userID, id))
}

func (m *MockOrderService) AttachPaymentReference(ctx context.Context, userID uint, id, reference string) error {
	return m.Called(ctx, userID, id, reference).Error(0)
}

func (m *MockOrderService) MarkPaymentByReference(ctx context.Context, reference string, outcome order.PaymentOutcome) error {
	return m.Called(ctx, reference, outcome).Error(0)
}

type MockPaymentService struct{ mock.Mock }

func (m *MockPaymentService) Initialize(ctx context.Context, userID uint, in payment.InitializeInput) (*payment.InitializeResult, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.InitializeResult), args.Error(1)
}

func (m *MockPaymentService) Verify(ctx context.Context, reference string) (*payment.Verification, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Verification), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, evt payment.WebhookEvent) error {
	return m.Called(ctx, evt).Error(0)
}
