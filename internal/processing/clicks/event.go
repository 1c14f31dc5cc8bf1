package clicks

import (
	"time"

	"github.com/geolink/edge/internal/events"
	"github.com/geolink/edge/internal/processing/routing"
)

// Geo is the validated visitor geography attached per request by the
// serving edge.
type Geo struct {
	Country   *string
	Latitude  *float64
	Longitude *float64
}

// NewLinkClick builds the durable click record for one redirect.
func NewLinkClick(rule *routing.RoutingRule, destination string, geo Geo, at time.Time) events.LinkClickMessage {
	return events.LinkClickMessage{
		Type: events.LinkClickType,
		Data: events.LinkClickData{
			ID:          rule.LinkID,
			Country:     geo.Country,
			Destination: destination,
			AccountID:   rule.AccountID,
			Latitude:    geo.Latitude,
			Longitude:   geo.Longitude,
			Timestamp:   at.UTC().Format(time.RFC3339Nano),
		},
	}
}
