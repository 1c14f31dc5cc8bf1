package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/geolink/edge/internal/processing/routing"
	goredis "github.com/redis/go-redis/v9"
)

// RulesCache is the shared routing-rule cache in front of the store.
// Entries are JSON with a TTL; link edits are picked up when the entry
// expires (versioned reads, no invalidation protocol).
type RulesCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewRulesCache(client *goredis.Client, prefix string, ttl time.Duration) *RulesCache {
	if prefix == "" {
		prefix = "rule"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RulesCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get returns the cached rule, or nil on a miss.
func (c *RulesCache) Get(ctx context.Context, linkID string) (*routing.RoutingRule, error) {
	raw, err := c.client.Get(ctx, c.key(linkID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rule routing.RoutingRule
	if err := json.Unmarshal(raw, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (c *RulesCache) Set(ctx context.Context, rule *routing.RoutingRule) error {
	payload, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(rule.LinkID), payload, c.ttl).Err()
}

func (c *RulesCache) key(linkID string) string {
	return c.prefix + ":" + linkID
}
