package constants

// Error codes attached to edge failures.
// Machine-readable identifiers, logged alongside the plain-text bodies.
const (
	// Common error codes
	CodeInternalError = "INTERNAL_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeRateLimited   = "RATE_LIMITED"

	// Redirect-path codes
	CodeDestinationNotFound = "DESTINATION_NOT_FOUND"
	CodeInvalidGeo          = "INVALID_GEO"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"

	// Click-socket codes
	CodeUpgradeRequired = "UPGRADE_REQUIRED"
	CodeMissingAccount  = "MISSING_ACCOUNT"
)
