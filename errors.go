package grain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("grain: not found")
	ErrAlreadyExists = errors.New("grain: already exists")
	ErrInvalidInput  = errors.New("grain: invalid input")

	// Record errors
	ErrProfileNotFound    = errors.New("grain: profile not found")
	ErrIngredientNotFound = errors.New("grain: ingredient not found")
	ErrTicketNotFound     = errors.New("grain: ticket not found")
	ErrDishNotFound       = errors.New("grain: dish not found")
	ErrMealNotFound       = errors.New("grain: meal not found")

	// Ledger errors
	ErrContractViolation = errors.New("grain: ledger contract violation")
	ErrCurrencyMismatch  = errors.New("grain: currency mismatch")
	ErrDrift             = errors.New("grain: ledger totals drifted")

	// Store errors
	ErrStoreClosed       = errors.New("grain: store is closed")
	ErrTransactionFailed = errors.New("grain: transaction failed")
	ErrConcurrentUpdate  = errors.New("grain: record changed by another writer")
	ErrMigrationFailed   = errors.New("grain: migration failed")
)

// ContractError reports a ledger call made in a state the ledger forbids,
// such as adding usage to an exhausted ingredient. It is a programming
// error in the caller; the operation is abandoned before anything is
// written.
type ContractError struct {
	Op     string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("grain: %s: %s", e.Op, e.Reason)
}

// Unwrap lets errors.Is match ErrContractViolation.
func (e *ContractError) Unwrap() error { return ErrContractViolation }

func contractf(op, format string, args ...any) error {
	return &ContractError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError represents a rejected input with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("grain: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "grain: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("grain: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrIngredientNotFound) ||
		errors.Is(err, ErrTicketNotFound) ||
		errors.Is(err, ErrDishNotFound) ||
		errors.Is(err, ErrMealNotFound)
}

// IsContractViolation returns true if the caller broke a ledger precondition.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrContractViolation)
}

// IsValidation returns true for rejected user input, including unknown ids.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrCurrencyMismatch) || IsNotFound(err)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed) || errors.Is(err, ErrConcurrentUpdate)
}
