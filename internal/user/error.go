package user

import "storefront-be/internal/apperror"

var (
	ErrEmailExists        = apperror.New(apperror.KindConflict, "User with this email already exists")
	ErrInvalidCredentials = apperror.New(apperror.KindUnauthorized, "Invalid email or password")
	ErrUserNotFound       = apperror.New(apperror.KindNotFound, "User not found")
)
