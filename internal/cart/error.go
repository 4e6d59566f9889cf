package cart

import (
	"fmt"

	"storefront-be/internal/apperror"
)

var (
	// -- Authentication/Authorization --
	ErrUserNotAuthenticated = apperror.New(apperror.KindUnauthorized, "Authentication required")

	// -- Validation & Input --
	ErrInvalidQuantity       = apperror.New(apperror.KindValidation, fmt.Sprintf("Quantity must be between 1 and %d", MaxQuantityPerLine))
	ErrInvalidUpdateQuantity = apperror.New(apperror.KindValidation, fmt.Sprintf("Quantity must be between 0 and %d", MaxQuantityPerLine))
	ErrInvalidProductID      = apperror.New(apperror.KindValidation, "Product ID is required")

	// -- Resource State --
	ErrProductNotFound     = apperror.New(apperror.KindNotFound, "Product not found")
	ErrCartItemNotFound    = apperror.New(apperror.KindNotFound, "Item not found in cart")
	ErrOutOfStock          = apperror.New(apperror.KindConflict, "Product is out of stock")
	ErrInsufficientStock   = apperror.New(apperror.KindConflict, "Insufficient stock")
	ErrMaxQuantityExceeded = apperror.New(apperror.KindConflict, fmt.Sprintf("Maximum %d items per product allowed", MaxQuantityPerLine))
)

func insufficientStock(available int) error {
	return apperror.Detail(ErrInsufficientStock, "Only %d items available in stock", available)
}
