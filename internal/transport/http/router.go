package http

import (
	"net/http"
	"strings"

	"github.com/geolink/edge/internal/config"
	"github.com/geolink/edge/internal/infrastructure/telemetry"
	"github.com/geolink/edge/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /health":       "health",
	"GET /metrics":      "metrics",
	"GET /r/{code}":     "links.redirect",
	"GET /click-socket": "clicks.socket",
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

func NewRouter(cfg *config.Config, redirect *RedirectHandler, trackerHandler *TrackerHandler, connectLimiter *middleware.RedisFixedWindowLimiter) http.Handler {
	return NewRouterWithOptions(cfg, redirect, trackerHandler, connectLimiter, DefaultRouterOptions())
}

func NewRouterWithOptions(
	cfg *config.Config,
	redirect *RedirectHandler,
	trackerHandler *TrackerHandler,
	connectLimiter *middleware.RedisFixedWindowLimiter,
	opts RouterOptions,
) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	mux.HandleFunc("GET /r/{code}", redirect.Redirect)

	socket := http.Handler(http.HandlerFunc(trackerHandler.Socket))
	if connectLimiter != nil {
		socket = middleware.RateLimitMiddleware(connectLimiter)(socket)
	}
	mux.Handle("GET /click-socket", socket)

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			key := r.Method + " " + r.Pattern
			if name, ok := spanNames[key]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
