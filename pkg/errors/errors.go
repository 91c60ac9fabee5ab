package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound              = errors.New("resource not found")
	ErrBadRequest            = errors.New("bad request")
	ErrConflict              = errors.New("resource conflict")
	ErrInternal              = errors.New("internal server error")
	ErrValidation            = errors.New("validation error")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInsufficientFreeStock = errors.New("insufficient free stock")
	ErrInternalConsistency   = errors.New("stock internal consistency violation")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(message string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// InsufficientStock is returned when a consumption or negative adjustment
// asks for more units than the item has on hand. Callers can retry with a
// smaller quantity.
func InsufficientStock(itemID string, requested, onHand int) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    fmt.Sprintf("requested %d units but only %d on hand", requested, onHand),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"item_id": itemID},
	}
}

// InsufficientFreeStock is returned when an allocation asks for more than
// the unallocated remainder of on-hand stock.
func InsufficientFreeStock(itemID string, requested, free int) *AppError {
	return &AppError{
		Err:        ErrInsufficientFreeStock,
		Code:       "INSUFFICIENT_FREE_STOCK",
		Message:    fmt.Sprintf("requested %d units but only %d unallocated", requested, free),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"item_id": itemID},
	}
}

// InternalConsistency is the fatal class: the batch walk could not satisfy a
// quantity that the cached aggregate said was available. It signals aggregate
// drift and must be logged loudly, never silently retried.
func InternalConsistency(itemID string, shortfall int) *AppError {
	return &AppError{
		Err:        ErrInternalConsistency,
		Code:       "STOCK_INCONSISTENT",
		Message:    fmt.Sprintf("batch walk short by %d units despite passing pre-check", shortfall),
		StatusCode: http.StatusInternalServerError,
		Details:    map[string]string{"item_id": itemID},
	}
}

// IsAppError extracts the AppError from an error chain
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
