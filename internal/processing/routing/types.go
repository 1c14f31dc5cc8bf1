package routing

import (
	"fmt"
	"strings"

	"github.com/geolink/edge/internal/infrastructure/validation"
)

// DefaultDestination is the wildcard key every routing rule must carry.
const DefaultDestination = "default"

// RoutingRule maps visitor countries onto destination URLs for one link.
// It is loaded read-only per request; the link editing path owns writes.
type RoutingRule struct {
	LinkID       string            `json:"linkId" validate:"required,notblank"`
	AccountID    string            `json:"accountId" validate:"required,notblank"`
	Destinations map[string]string `json:"destinations" validate:"required,dive,keys,notblank,endkeys,http_url"`
}

// Validate checks the rule schema and the invariant that a non-empty
// default entry exists. Both the store and cache decode paths call it,
// so a corrupted document never reaches the selector.
func (r *RoutingRule) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	if strings.TrimSpace(r.Destinations[DefaultDestination]) == "" {
		return fmt.Errorf("rule %s: %w", r.LinkID, ErrMissingDefault)
	}
	return nil
}
