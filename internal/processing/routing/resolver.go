package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/geolink/edge/internal/infrastructure/logger"
	"github.com/geolink/edge/pkg/breaker"
	"go.uber.org/zap"
)

type ResolverOptions struct {
	// LookupTimeout bounds each individual store attempt.
	LookupTimeout time.Duration
	// MaxAttempts is the total number of store attempts before the
	// lookup is reported as ErrStoreUnavailable.
	MaxAttempts int
	RetryBase   time.Duration
	RetryMax    time.Duration

	LocalCacheTTL     time.Duration
	LocalCacheEntries int64

	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{
		LookupTimeout:      500 * time.Millisecond,
		MaxAttempts:        3,
		RetryBase:          50 * time.Millisecond,
		RetryMax:           400 * time.Millisecond,
		LocalCacheTTL:      30 * time.Second,
		LocalCacheEntries:  10_000,
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: 10 * time.Second,
	}
}

// Resolver answers "which rule routes this short code" from a local
// in-process cache, then the shared redis cache, then the store. Only
// the store is authoritative; both caches are best-effort.
type Resolver struct {
	store RuleStore
	cache RuleCache
	local *ristretto.Cache
	brk   *breaker.Breaker
	opts  ResolverOptions
	sleep func(time.Duration)
}

// NewResolver builds a resolver. cache may be nil when no shared cache
// is configured.
func NewResolver(store RuleStore, cache RuleCache, opts ResolverOptions) (*Resolver, error) {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 500 * time.Millisecond
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 50 * time.Millisecond
	}
	if opts.RetryMax < opts.RetryBase {
		opts.RetryMax = opts.RetryBase
	}
	if opts.LocalCacheEntries <= 0 {
		opts.LocalCacheEntries = 10_000
	}
	if opts.LocalCacheTTL <= 0 {
		opts.LocalCacheTTL = 30 * time.Second
	}
	if opts.BreakerMaxFailures <= 0 {
		opts.BreakerMaxFailures = 5
	}
	if opts.BreakerOpenTimeout <= 0 {
		opts.BreakerOpenTimeout = 10 * time.Second
	}

	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: opts.LocalCacheEntries * 10,
		MaxCost:     opts.LocalCacheEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Resolver{
		store: store,
		cache: cache,
		local: local,
		brk:   breaker.New(opts.BreakerMaxFailures, opts.BreakerOpenTimeout),
		opts:  opts,
		sleep: time.Sleep,
	}, nil
}

// Resolve returns the routing rule for linkID. Unknown codes return
// ErrNotFound; anything that prevents an authoritative answer returns
// an error wrapping ErrStoreUnavailable.
func (r *Resolver) Resolve(ctx context.Context, linkID string) (*RoutingRule, error) {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return nil, ErrNotFound
	}

	if cached, ok := r.local.Get(linkID); ok {
		if rule, ok := cached.(*RoutingRule); ok {
			return rule, nil
		}
	}

	if r.cache != nil {
		rule, err := r.cache.Get(ctx, linkID)
		if err != nil {
			logger.Warn("rules cache read failed", zap.Error(err), zap.String("link_id", linkID))
		} else if rule != nil {
			if vErr := rule.Validate(); vErr == nil {
				r.local.SetWithTTL(linkID, rule, 1, r.opts.LocalCacheTTL)
				return rule, nil
			}
			logger.Warn("discarding invalid cached rule", zap.String("link_id", linkID))
		}
	}

	rule, err := r.lookup(ctx, linkID)
	if err != nil {
		return nil, err
	}

	r.local.SetWithTTL(linkID, rule, 1, r.opts.LocalCacheTTL)
	if r.cache != nil {
		if err := r.cache.Set(ctx, rule); err != nil {
			logger.Warn("rules cache write failed", zap.Error(err), zap.String("link_id", linkID))
		}
	}

	return rule, nil
}

func (r *Resolver) lookup(ctx context.Context, linkID string) (*RoutingRule, error) {
	var lastErr error

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if err := r.brk.Allow(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.LookupTimeout)
		rule, err := r.store.FindByLinkID(attemptCtx, linkID)
		cancel()

		if err == nil {
			r.brk.Success()
			if vErr := rule.Validate(); vErr != nil {
				logger.Error("store returned invalid routing rule",
					zap.Error(vErr),
					zap.String("link_id", linkID),
				)
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, vErr)
			}
			return rule, nil
		}
		if errors.Is(err, ErrNotFound) {
			// Unknown codes are a frequent, expected outcome. The store
			// answered, so the breaker counts it as a success.
			r.brk.Success()
			return nil, ErrNotFound
		}

		r.brk.Failure()
		lastErr = err
		logger.Warn("routing store lookup failed",
			zap.Error(err),
			zap.String("link_id", linkID),
			zap.Int("attempt", attempt),
		)

		if attempt < r.opts.MaxAttempts {
			r.sleep(retryDelay(r.opts.RetryBase, r.opts.RetryMax, attempt))
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, lastErr)
}

// Close releases the local cache.
func (r *Resolver) Close() {
	r.local.Close()
}

func retryDelay(base, max time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
