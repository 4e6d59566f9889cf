package order

import "storefront-be/internal/apperror"

var (
	// -- Input --
	ErrIncompleteAddress = apperror.New(apperror.KindValidation, "Complete shipping address is required")
	ErrInvalidStatus     = apperror.New(apperror.KindValidation, "Invalid status")

	// -- Checkout --
	ErrCartEmpty            = apperror.New(apperror.KindValidation, "Cart is empty")
	ErrProductUnavailable   = apperror.New(apperror.KindConflict, "Product no longer exists")
	ErrProductOutOfStock    = apperror.New(apperror.KindConflict, "Product is out of stock")
	ErrDuplicateReference   = apperror.New(apperror.KindConflict, "Payment reference already used")
	ErrUserNotAuthenticated = apperror.New(apperror.KindUnauthorized, "Authentication required")

	// -- Lifecycle --
	ErrOrderNotFound     = apperror.New(apperror.KindNotFound, "Order not found")
	ErrInvalidTransition = apperror.New(apperror.KindConflict, "Invalid status transition")
	ErrStatusChanged     = apperror.New(apperror.KindConflict, "Order status changed concurrently")
	ErrAlreadyPaid       = apperror.New(apperror.KindConflict, "Order has already been paid")
)

func productUnavailable(name string) error {
	return apperror.Detail(ErrProductUnavailable, "Product %s no longer exists", name)
}

func productOutOfStock(name string) error {
	return apperror.Detail(ErrProductOutOfStock, "Product %s is out of stock", name)
}

func invalidTransition(from, to Status) error {
	return apperror.Detail(ErrInvalidTransition, "Cannot change order status from %s to %s", from, to)
}
