package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	appvalidation "github.com/geolink/edge/internal/infrastructure/validation"
	"github.com/geolink/edge/internal/processing/clicks"
	"github.com/geolink/edge/internal/transport/http/middleware"
)

var errMissingGeo = errors.New("geo metadata header missing")

// geoContext is the per-request geography document the fronting edge
// attaches. Trusted channel or not, it is schema-validated before use:
// these fields feed analytics and must never be silently corrupt.
type geoContext struct {
	Country   *string  `json:"country" validate:"omitempty,iso3166_1_alpha2"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

func geoFromRequest(r *http.Request) (clicks.Geo, error) {
	raw := strings.TrimSpace(r.Header.Get(middleware.GeoHeader))
	if raw == "" {
		return clicks.Geo{}, errMissingGeo
	}

	var g geoContext
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return clicks.Geo{}, err
	}
	if err := appvalidation.Validate(g); err != nil {
		return clicks.Geo{}, err
	}

	return clicks.Geo{
		Country:   g.Country,
		Latitude:  g.Latitude,
		Longitude: g.Longitude,
	}, nil
}
