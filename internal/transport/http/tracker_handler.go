package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/geolink/edge/internal/constants"
	"github.com/geolink/edge/internal/infrastructure/logger"
	"github.com/geolink/edge/internal/processing/tracker"
	"github.com/geolink/edge/internal/transport/http/middleware"
	"github.com/geolink/edge/pkg/httputils"
	"go.uber.org/zap"
)

// TrackerHandler upgrades viewer connections and relays the account's
// click stream until the viewer disconnects.
type TrackerHandler struct {
	registry     *tracker.Registry
	writeTimeout time.Duration
}

func NewTrackerHandler(registry *tracker.Registry, writeTimeout time.Duration) *TrackerHandler {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &TrackerHandler{
		registry:     registry,
		writeTimeout: writeTimeout,
	}
}

func (h *TrackerHandler) Socket(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(strings.TrimSpace(r.Header.Get("Upgrade")), "websocket") {
		httputils.WritePlainError(w, r, constants.ErrUpgradeRequired)
		return
	}

	accountID := strings.TrimSpace(r.Header.Get(middleware.AccountIDHeader))
	if accountID == "" {
		httputils.WritePlainError(w, r, constants.ErrMissingAccount)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Cross-origin dashboards dial this endpoint; tenancy is carried
		// by the account-id header, not the origin.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Warn("websocket accept failed", zap.Error(err), zap.String("account_id", accountID))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	eventsCh, cancel := h.registry.Subscribe(accountID)
	defer cancel()

	logger.Info("live click viewer connected",
		zap.String("account_id", accountID),
		zap.Int("viewers", h.registry.Viewers(accountID)),
	)

	// No client messages are expected; CloseRead surfaces disconnects
	// through the returned context.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-eventsCh:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, h.writeTimeout)
			err := wsjson.Write(writeCtx, conn, msg)
			cancelWrite()
			if err != nil {
				logger.Debug("live click viewer write failed",
					zap.Error(err),
					zap.String("account_id", accountID),
				)
				return
			}
		}
	}
}
