package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware adds CORS headers to responses using rs/cors library
func CORSMiddleware(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		// Redirects are opened from anywhere; the socket is dialed from
		// the dashboard origin, which we don't know ahead of time.
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodOptions,
			http.MethodHead,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Accept",
			"Origin",
			"X-Requested-With",
			"X-Correlation-Id",
			AccountIDHeader,
			GeoHeader,
			// OpenTelemetry headers
			"traceparent",
			"tracestate",
			"baggage",
		},
		AllowCredentials: true,
	})

	return c.Handler(next)
}
