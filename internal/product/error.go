package product

import "storefront-be/internal/apperror"

var (
	// -- Validation & Input --
	ErrInvalidCategory = apperror.New(apperror.KindValidation, "Invalid category")
	ErrInvalidSort     = apperror.New(apperror.KindValidation, "Invalid sort field")
	ErrInvalidPrice    = apperror.New(apperror.KindValidation, "Invalid price range")
	ErrNoFieldsToApply = apperror.New(apperror.KindValidation, "No fields to update")

	// -- Resource State --
	ErrProductNotFound = apperror.New(apperror.KindNotFound, "Product not found")
)
