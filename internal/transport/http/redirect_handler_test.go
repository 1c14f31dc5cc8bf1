package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geolink/edge/internal/config"
	"github.com/geolink/edge/internal/events"
	"github.com/geolink/edge/internal/processing/routing"
	"github.com/geolink/edge/internal/transport/http/middleware"
)

type stubResolver struct {
	rules map[string]*routing.RoutingRule
	err   error
}

func (s *stubResolver) Resolve(ctx context.Context, linkID string) (*routing.RoutingRule, error) {
	if s.err != nil {
		return nil, s.err
	}
	rule, ok := s.rules[linkID]
	if !ok {
		return nil, routing.ErrNotFound
	}
	return rule, nil
}

type recordingDispatcher struct {
	mu         sync.Mutex
	dispatched []events.LinkClickMessage
}

func (d *recordingDispatcher) Dispatch(msg events.LinkClickMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, msg)
}

func (d *recordingDispatcher) snapshot() []events.LinkClickMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.LinkClickMessage, len(d.dispatched))
	copy(out, d.dispatched)
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Name: "geolink-edge-test"},
		Edge: config.EdgeConfig{RedirectStatus: http.StatusFound},
	}
}

func testRules() map[string]*routing.RoutingRule {
	return map[string]*routing.RoutingRule{
		"abc123": {
			LinkID:    "abc123",
			AccountID: "acct-1",
			Destinations: map[string]string{
				routing.DefaultDestination: "https://example.com",
				"FR":                       "https://example.fr",
			},
		},
	}
}

func redirectRequest(code, geoHeader string) *http.Request {
	r := httptest.NewRequest("GET", fmt.Sprintf("/r/%s", code), nil)
	r.SetPathValue("code", code)
	if geoHeader != "" {
		r.Header.Set(middleware.GeoHeader, geoHeader)
	}
	return r
}

func TestRedirectGeoTargeted(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	h := NewRedirectHandler(testConfig(), &stubResolver{rules: testRules()}, dispatcher)

	tests := []struct {
		name         string
		geo          string
		wantLocation string
	}{
		{"mapped country", `{"country":"FR","latitude":48.85,"longitude":2.35}`, "https://example.fr"},
		{"unmapped country", `{"country":"DE","latitude":52.52,"longitude":13.40}`, "https://example.com"},
		{"no country", `{"latitude":10,"longitude":20}`, "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.Redirect(rr, redirectRequest("abc123", tt.geo))

			if rr.Code != http.StatusFound {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusFound)
			}
			if got := rr.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
		})
	}
}

func TestRedirectUnknownCode(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	h := NewRedirectHandler(testConfig(), &stubResolver{rules: testRules()}, dispatcher)

	rr := httptest.NewRecorder()
	h.Redirect(rr, redirectRequest("zzz999", `{"country":"FR"}`))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "Destination not found" {
		t.Errorf("body = %q, want %q", got, "Destination not found")
	}
	if len(dispatcher.snapshot()) != 0 {
		t.Error("no click must be dispatched for an unknown code")
	}
}

func TestRedirectMissingGeo(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	h := NewRedirectHandler(testConfig(), &stubResolver{rules: testRules()}, dispatcher)

	rr := httptest.NewRecorder()
	h.Redirect(rr, redirectRequest("abc123", ""))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if len(dispatcher.snapshot()) != 0 {
		t.Error("no click must be dispatched when geo validation fails")
	}
}

func TestRedirectMalformedGeo(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	h := NewRedirectHandler(testConfig(), &stubResolver{rules: testRules()}, dispatcher)

	for _, geo := range []string{`{bad`, `{"country":"FRANCE"}`, `{"latitude":200}`} {
		rr := httptest.NewRecorder()
		h.Redirect(rr, redirectRequest("abc123", geo))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("geo %q: status = %d, want 400", geo, rr.Code)
		}
	}
}

func TestRedirectStoreUnavailable(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	resolver := &stubResolver{err: fmt.Errorf("%w: connection refused", routing.ErrStoreUnavailable)}
	h := NewRedirectHandler(testConfig(), resolver, dispatcher)

	rr := httptest.NewRecorder()
	h.Redirect(rr, redirectRequest("abc123", `{"country":"FR"}`))

	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rr.Code)
	}
	if len(dispatcher.snapshot()) != 0 {
		t.Error("no click must be dispatched when the store is unavailable")
	}
}

func TestRedirectDispatchesClick(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	h := NewRedirectHandler(testConfig(), &stubResolver{rules: testRules()}, dispatcher)
	at := time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)
	h.now = func() time.Time { return at }

	rr := httptest.NewRecorder()
	h.Redirect(rr, redirectRequest("abc123", `{"country":"FR","latitude":48.85,"longitude":2.35}`))

	got := dispatcher.snapshot()
	if len(got) != 1 {
		t.Fatalf("dispatched %d events, want 1", len(got))
	}

	data := got[0].Data
	if got[0].Type != events.LinkClickType {
		t.Errorf("Type = %q, want %q", got[0].Type, events.LinkClickType)
	}
	if data.ID != "abc123" {
		t.Errorf("data.id = %q, want abc123", data.ID)
	}
	if data.AccountID != "acct-1" {
		t.Errorf("data.accountId = %q, want acct-1", data.AccountID)
	}
	if data.Destination != "https://example.fr" {
		t.Errorf("data.destination = %q, want the URL the visitor was sent to", data.Destination)
	}
	if data.Country == nil || *data.Country != "FR" {
		t.Errorf("data.country = %v, want FR", data.Country)
	}
	if data.Latitude == nil || *data.Latitude != 48.85 {
		t.Errorf("data.latitude = %v, want 48.85", data.Latitude)
	}
	if data.Timestamp != at.Format(time.RFC3339Nano) {
		t.Errorf("data.timestamp = %q, want %q", data.Timestamp, at.Format(time.RFC3339Nano))
	}
}

func TestRedirectPermanentStatus(t *testing.T) {
	cfg := testConfig()
	cfg.Edge.RedirectStatus = http.StatusMovedPermanently
	h := NewRedirectHandler(cfg, &stubResolver{rules: testRules()}, &recordingDispatcher{})

	rr := httptest.NewRecorder()
	h.Redirect(rr, redirectRequest("abc123", `{"country":"FR"}`))

	if rr.Code != http.StatusMovedPermanently {
		t.Errorf("status = %d, want 301", rr.Code)
	}
}

func TestResolverErrorKinds(t *testing.T) {
	// ErrNotFound wrapped in another error must still read as 404.
	dispatcher := &recordingDispatcher{}
	resolver := &stubResolver{err: fmt.Errorf("lookup: %w", routing.ErrNotFound)}
	h := NewRedirectHandler(testConfig(), resolver, dispatcher)

	rr := httptest.NewRecorder()
	h.Redirect(rr, redirectRequest("abc123", `{"country":"FR"}`))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for a wrapped ErrNotFound", rr.Code)
	}

	resolver.err = errors.New("something else entirely")
	rr = httptest.NewRecorder()
	h.Redirect(rr, redirectRequest("abc123", `{"country":"FR"}`))

	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 for an unclassified resolver error", rr.Code)
	}
}
