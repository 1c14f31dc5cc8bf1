package routing

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("routing rule not found")
	ErrStoreUnavailable = errors.New("routing store unavailable")
	ErrMissingDefault   = errors.New("routing rule has no default destination")
)

// RuleStore is the authoritative lookup backed by whatever store the
// link CRUD side maintains.
type RuleStore interface {
	FindByLinkID(ctx context.Context, linkID string) (*RoutingRule, error)
}

// RuleCache sits in front of the store and is strictly best-effort:
// a nil rule with a nil error is a miss, and errors never fail a lookup.
type RuleCache interface {
	Get(ctx context.Context, linkID string) (*RoutingRule, error)
	Set(ctx context.Context, rule *RoutingRule) error
}
