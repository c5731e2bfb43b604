package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Business-rule errors. The caller can only fix these by changing what it asks for.
var (
	ErrStockUnavailable       = errors.New("product is currently out of stock")
	ErrPriceMismatch          = errors.New("price mismatch for product")
	ErrDeliveryMethodNotFound = errors.New("delivery method not found or is inactive")
	ErrOrderNotFound          = errors.New("order not found")
	ErrAlreadyVerified        = errors.New("payment already verified for this order")
	ErrAmountMismatch         = errors.New("payment amount mismatch")
	ErrPaymentMethodMismatch  = errors.New("order was not placed with the required payment method")
	ErrNotAwaitingPayment     = errors.New("order payment is not awaiting confirmation")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrOrderConflict          = errors.New("order was modified concurrently")
	ErrDateUnavailable        = errors.New("this date is not available")
	ErrSlotTaken              = errors.New("this time slot is already booked")
	ErrBookingNotFound        = errors.New("booking not found")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StockUnavailableError names the product that cannot be ordered.
type StockUnavailableError struct {
	ProductID   int64
	ProductName string
}

func (e *StockUnavailableError) Error() string {
	return fmt.Sprintf("product '%s' is currently out of stock", e.ProductName)
}

func (e *StockUnavailableError) Unwrap() error { return ErrStockUnavailable }

// isUniqueViolation checks for a unique constraint violation (pgconn error
// code 23505) on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}
