package constants

import "net/http"

// APIError represents a standardized edge error with code, message, and HTTP status.
// Use these predefined errors for consistent responses across the application.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// WithMessage returns a copy of the APIError with a custom message.
func (e APIError) WithMessage(message string) APIError {
	return APIError{
		Code:    e.Code,
		Message: message,
		Status:  e.Status,
	}
}

// Common errors - shared across multiple modules
var (
	ErrInternalError = APIError{
		Code:    CodeInternalError,
		Message: MsgInternalError,
		Status:  http.StatusInternalServerError,
	}
	ErrRateLimited = APIError{
		Code:    CodeRateLimited,
		Message: MsgRateLimited,
		Status:  http.StatusTooManyRequests,
	}
)

// Redirect-path errors
var (
	ErrDestinationNotFound = APIError{
		Code:    CodeDestinationNotFound,
		Message: MsgDestinationNotFound,
		Status:  http.StatusNotFound,
	}
	ErrInvalidGeo = APIError{
		Code:    CodeInvalidGeo,
		Message: MsgInvalidGeo,
		Status:  http.StatusBadRequest,
	}
	ErrStoreUnavailable = APIError{
		Code:    CodeStoreUnavailable,
		Message: MsgStoreUnavailable,
		Status:  http.StatusBadGateway,
	}
)

// Click-socket errors
var (
	ErrUpgradeRequired = APIError{
		Code:    CodeUpgradeRequired,
		Message: MsgUpgradeRequired,
		Status:  http.StatusUpgradeRequired,
	}
	ErrMissingAccount = APIError{
		Code:    CodeMissingAccount,
		Message: MsgMissingAccount,
		Status:  http.StatusNotFound,
	}
)
