package auth

import "storefront-be/internal/apperror"

var (
	ErrNoToken      = apperror.New(apperror.KindUnauthorized, "Access denied. No token provided.")
	ErrInvalidToken = apperror.New(apperror.KindUnauthorized, "Invalid token")
	ErrInactiveUser = apperror.New(apperror.KindUnauthorized, "User account is deactivated")
	ErrForbidden    = apperror.New(apperror.KindForbidden, "Access denied. Insufficient permissions.")

	ErrSecretNotSet = apperror.New(apperror.KindInternal, "JWT_SECRET is not set")
)
