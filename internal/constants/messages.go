package constants

// Visitor-facing bodies. Kept plain and minimal: the redirect path is
// hit by browsers and bots, never by our own UI.
const (
	MsgInternalError = "Service error"
	MsgRateLimited   = "Too many connections"

	MsgDestinationNotFound = "Destination not found"
	MsgInvalidGeo          = "Invalid geo metadata"
	MsgStoreUnavailable    = "Service temporarily unavailable"

	MsgUpgradeRequired = "Expected Upgrade: websocket"
	MsgMissingAccount  = "No Headers"
)
