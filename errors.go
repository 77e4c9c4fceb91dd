package till

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("till: not found")
	ErrAlreadyExists = errors.New("till: already exists")
	ErrInvalidInput  = errors.New("till: invalid input")

	// Catalog errors
	ErrProductNotFound = errors.New("till: product not found")
	ErrDuplicateSKU    = errors.New("till: duplicate sku")

	// Billing errors
	ErrRecordNotFound = errors.New("till: billing record not found")
	ErrStockExhausted = errors.New("till: insufficient stock")

	// Invoice errors
	ErrRenderFailed = errors.New("till: invoice render failed")

	// Store errors
	ErrStoreNotReady     = errors.New("till: store not ready")
	ErrStoreClosed       = errors.New("till: store is closed")
	ErrTransactionFailed = errors.New("till: transaction failed")
	ErrMigrationFailed   = errors.New("till: migration failed")

	// Session errors
	ErrSessionMiss    = errors.New("till: session entry not found")
	ErrSessionExpired = errors.New("till: session entry expired")
)

// ValidationError represents a validation failure with details.
// No mutation is ever attempted for a request that fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("till: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets callers match ValidationError against ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// InsufficientStockError identifies the first sale line whose requested
// quantity exceeds the product's current stock. The whole sale aborts; no
// partial decrement is ever committed.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int64
	Available int64
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("till: insufficient stock for %s (product %d): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

// Unwrap lets callers match InsufficientStockError against ErrStockExhausted.
func (e InsufficientStockError) Unwrap() error { return ErrStockExhausted }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}

// IsInsufficientStock returns true if the error is a stock availability failure.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrStockExhausted)
}

// IsValidation returns true if the error is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRetryable returns true if the error is temporary and the operation can
// be resubmitted by the caller. The engine itself never retries.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
