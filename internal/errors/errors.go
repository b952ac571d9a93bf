// Package errors provides custom error types for the moneta API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches any AppError carrying the same code, so copies made by Wrap and
// WithMessage still satisfy errors.Is against their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrForbidden    = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Account and card errors.
var (
	ErrAccountNotFound = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrCardNotFound    = &AppError{Code: "CARD_NOT_FOUND", Message: "Card not found", StatusCode: http.StatusNotFound}
)

// Category and tag errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse     = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is used by active budgets", StatusCode: http.StatusConflict}
	ErrDuplicateCategory = &AppError{Code: "DUPLICATE_CATEGORY", Message: "A category with this name and type already exists", StatusCode: http.StatusConflict}
	ErrTagNotFound       = &AppError{Code: "TAG_NOT_FOUND", Message: "Tag not found", StatusCode: http.StatusNotFound}
	ErrDuplicateTag      = &AppError{Code: "DUPLICATE_TAG", Message: "A tag with this name already exists", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Transaction type must be income or expense", StatusCode: http.StatusBadRequest}
	ErrInvalidPeriod          = &AppError{Code: "INVALID_PERIOD", Message: "Period start must not be after period end", StatusCode: http.StatusBadRequest}
)

// Import errors.
var (
	ErrUnsupportedFormat      = &AppError{Code: "UNSUPPORTED_FORMAT", Message: "Unsupported import format", StatusCode: http.StatusBadRequest}
	ErrMalformedFile          = &AppError{Code: "MALFORMED_FILE", Message: "The file could not be read", StatusCode: http.StatusUnprocessableEntity}
	ErrMissingColumns         = &AppError{Code: "MISSING_COLUMNS", Message: "Required columns were not found", StatusCode: http.StatusUnprocessableEntity}
	ErrWorkerBusy             = &AppError{Code: "WORKER_BUSY", Message: "All import workers are busy, try again", StatusCode: http.StatusServiceUnavailable}
	ErrImportCancelled        = &AppError{Code: "IMPORT_CANCELLED", Message: "The import was cancelled", StatusCode: http.StatusRequestTimeout}
	ErrInvalidMappingDecision = &AppError{Code: "INVALID_MAPPING_DECISION", Message: "Invalid category or tag mapping decision", StatusCode: http.StatusBadRequest}
)

// Installment errors.
var (
	ErrInstallmentPlanNotFound = &AppError{Code: "INSTALLMENT_PLAN_NOT_FOUND", Message: "Installment plan not found", StatusCode: http.StatusNotFound}
	ErrReconciliationRequired  = &AppError{Code: "RECONCILIATION_REQUIRED", Message: "The installment purchase could not be completed and needs reconciliation", StatusCode: http.StatusConflict}
)

// Budget errors.
var (
	ErrBudgetNotFound = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
)
