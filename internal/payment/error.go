package payment

import "storefront-be/internal/apperror"

var (
	ErrReferenceRequired = apperror.New(apperror.KindValidation, "Payment reference is required")
	ErrInvalidAmount     = apperror.New(apperror.KindValidation, "Amount must be greater than 0")
	ErrNotConfigured     = apperror.New(apperror.KindInternal, "Payment provider not configured")
	ErrAuthRequired      = apperror.New(apperror.KindUnauthorized, "Authentication required to pay for an order")
	ErrInvalidSignature  = apperror.New(apperror.KindUnauthorized, "Invalid webhook signature")

	// ErrProviderUnavailable is returned while the circuit breaker is open.
	ErrProviderUnavailable = apperror.New(apperror.KindExternal, "Payment provider temporarily unavailable")
)
