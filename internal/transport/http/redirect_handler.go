package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geolink/edge/internal/config"
	"github.com/geolink/edge/internal/constants"
	"github.com/geolink/edge/internal/events"
	"github.com/geolink/edge/internal/infrastructure/logger"
	"github.com/geolink/edge/internal/processing/clicks"
	"github.com/geolink/edge/internal/processing/routing"
	"github.com/geolink/edge/pkg/httputils"
	"go.uber.org/zap"
)

// RuleResolver answers short-code lookups for the redirect path.
type RuleResolver interface {
	Resolve(ctx context.Context, linkID string) (*routing.RoutingRule, error)
}

// ClickDispatcher accepts a click for asynchronous delivery.
type ClickDispatcher interface {
	Dispatch(msg events.LinkClickMessage)
}

// RedirectHandler is the request-path state machine: resolve the code,
// validate the geo context, pick a destination, answer the visitor, and
// only then hand the click to the background delivery path.
type RedirectHandler struct {
	cfg        *config.Config
	resolver   RuleResolver
	dispatcher ClickDispatcher
	now        func() time.Time
}

func NewRedirectHandler(cfg *config.Config, resolver RuleResolver, dispatcher ClickDispatcher) *RedirectHandler {
	return &RedirectHandler{
		cfg:        cfg,
		resolver:   resolver,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	rule, err := h.resolver.Resolve(r.Context(), code)
	if err != nil {
		if errors.Is(err, routing.ErrNotFound) {
			httputils.WritePlainError(w, r, constants.ErrDestinationNotFound)
			return
		}
		logger.Error("failed to resolve short code", zap.Error(err), zap.String("code", code))
		httputils.WritePlainError(w, r, constants.ErrStoreUnavailable)
		return
	}

	geo, err := geoFromRequest(r)
	if err != nil {
		// Hard 400 rather than default-only routing: a corrupt geo
		// document would otherwise poison analytics silently.
		logger.Warn("invalid geo metadata", zap.Error(err), zap.String("code", code))
		httputils.WritePlainError(w, r, constants.ErrInvalidGeo)
		return
	}

	destination := routing.SelectDestination(rule, geo.Country)

	http.Redirect(w, r, destination, h.cfg.Edge.RedirectStatus)

	// The response is already written; whatever happens to the click
	// from here on cannot delay or alter it.
	h.dispatcher.Dispatch(clicks.NewLinkClick(rule, destination, geo, h.now()))
}
