package httputils

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/geolink/edge/internal/constants"
	"github.com/google/uuid"
)

const CorrelationIDHeader = "X-Correlation-Id"

type SuccessResponse struct {
	Data any `json:"data"`
}

// GetCorrelationID extracts the correlation ID from the request header
// If not present, generates a new UUID v4
func GetCorrelationID(r *http.Request) string {
	correlationID := r.Header.Get(CorrelationIDHeader)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	return correlationID
}

// WritePlainError writes a minimal text/plain error body. The edge path
// is hit by browsers and bots; nothing internal leaks past the message.
func WritePlainError(w http.ResponseWriter, r *http.Request, apiErr constants.APIError) {
	w.Header().Set(CorrelationIDHeader, GetCorrelationID(r))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(apiErr.Status)
	_, _ = w.Write([]byte(apiErr.Message))
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := SuccessResponse{Data: data}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode json response", "error", err)
	}
}
