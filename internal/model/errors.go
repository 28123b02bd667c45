package model

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidProductID = errors.New("Invalid product ID")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrProductMissing   = errors.New("Product ID does not exist in database. Please check your cart items and try again.")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrProfileTimeout   = errors.New("profile_load_timeout")
)

// ValidationError carries a message meant for the person filling a form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
