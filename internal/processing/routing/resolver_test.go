package routing

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockRuleStore struct {
	findFunc func(ctx context.Context, linkID string) (*RoutingRule, error)
	calls    int
}

func (m *mockRuleStore) FindByLinkID(ctx context.Context, linkID string) (*RoutingRule, error) {
	m.calls++
	return m.findFunc(ctx, linkID)
}

type mockRuleCache struct {
	getFunc  func(ctx context.Context, linkID string) (*RoutingRule, error)
	setFunc  func(ctx context.Context, rule *RoutingRule) error
	getCalls int
	setCalls int
}

func (m *mockRuleCache) Get(ctx context.Context, linkID string) (*RoutingRule, error) {
	m.getCalls++
	if m.getFunc == nil {
		return nil, nil
	}
	return m.getFunc(ctx, linkID)
}

func (m *mockRuleCache) Set(ctx context.Context, rule *RoutingRule) error {
	m.setCalls++
	if m.setFunc == nil {
		return nil
	}
	return m.setFunc(ctx, rule)
}

func newTestResolver(t *testing.T, store RuleStore, cache RuleCache, opts ResolverOptions) *Resolver {
	t.Helper()
	r, err := NewResolver(store, cache, opts)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	t.Cleanup(r.Close)
	r.sleep = func(time.Duration) {}
	return r
}

func TestResolveReturnsStoreRule(t *testing.T) {
	want := validRule()
	store := &mockRuleStore{
		findFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			if linkID != "abc123" {
				t.Errorf("store queried with %q, want abc123", linkID)
			}
			return want, nil
		},
	}

	r := newTestResolver(t, store, nil, DefaultResolverOptions())

	got, err := r.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.LinkID != want.LinkID || got.AccountID != want.AccountID {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
	if store.calls != 1 {
		t.Errorf("store called %d times, want 1", store.calls)
	}
}

func TestResolveEmptyCode(t *testing.T) {
	store := &mockRuleStore{
		findFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			t.Error("store must not be queried for an empty code")
			return nil, ErrNotFound
		},
	}

	r := newTestResolver(t, store, nil, DefaultResolverOptions())

	for _, code := range []string{"", "   "} {
		if _, err := r.Resolve(context.Background(), code); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%q) error = %v, want ErrNotFound", code, err)
		}
	}
}

func TestResolveNotFoundDoesNotRetry(t *testing.T) {
	store := &mockRuleStore{
		findFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			return nil, ErrNotFound
		},
	}

	r := newTestResolver(t, store, nil, DefaultResolverOptions())

	_, err := r.Resolve(context.Background(), "zzz999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
	}
	if store.calls != 1 {
		t.Errorf("store called %d times, want 1 (unknown codes are not retried)", store.calls)
	}
}

func TestResolveRetriesThenUnavailable(t *testing.T) {
	var slept []time.Duration
	store := &mockRuleStore{
		findFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			return nil, errors.New("connection refused")
		},
	}

	opts := DefaultResolverOptions()
	opts.MaxAttempts = 3
	opts.RetryBase = 50 * time.Millisecond
	opts.RetryMax = 400 * time.Millisecond

	r := newTestResolver(t, store, nil, opts)
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	_, err := r.Resolve(context.Background(), "abc123")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Resolve() error = %v, want ErrStoreUnavailable", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("store failures must never be reported as ErrNotFound")
	}
	if store.calls != 3 {
		t.Errorf("store called %d times, want 3", store.calls)
	}

	wantDelays := []time.Duration{50 * time.Millisecond, 100 * time.Millisecond}
	if len(slept) != len(wantDelays) {
		t.Fatalf("slept %d times, want %d", len(slept), len(wantDelays))
	}
	for i, want := range wantDelays {
		if slept[i] != want {
			t.Errorf("retry %d delay = %v, want %v", i+1, slept[i], want)
		}
	}
}

func TestResolveRecoversAfterTransientFailure(t *testing.T) {
	rule := validRule()
	store := &mockRuleStore{}
	store.findFunc = func(ctx context.Context, linkID string) (*RoutingRule, error) {
		if store.calls == 1 {
			return nil, errors.New("timeout")
		}
		return rule, nil
	}

	r := newTestResolver(t, store, nil, DefaultResolverOptions())

	got, err := r.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.LinkID != rule.LinkID {
		t.Errorf("Resolve() = %+v, want %+v", got, rule)
	}
	if store.calls != 2 {
		t.Errorf("store called %d times, want 2", store.calls)
	}
}

func TestResolveSharedCacheHitSkipsStore(t *testing.T) {
	rule := validRule()
	store := &mockRuleStore{
		findFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			t.Error("store must not be queried on a cache hit")
			return nil, ErrNotFound
		},
	}
	cache := &mockRuleCache{
		getFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			return rule, nil
		},
	}

	r := newTestResolver(t, store, cache, DefaultResolverOptions())

	got, err := r.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.LinkID != rule.LinkID {
		t.Errorf("Resolve() = %+v, want cached rule", got)
	}
	if cache.getCalls != 1 {
		t.Errorf("cache queried %d times, want 1", cache.getCalls)
	}
}

func TestResolveCacheMissFallsThroughAndPopulates(t *testing.T) {
	rule := validRule()
	store := &mockRuleStore{
		findFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			return rule, nil
		},
	}
	cache := &mockRuleCache{}

	r := newTestResolver(t, store, cache, DefaultResolverOptions())

	if _, err := r.Resolve(context.Background(), "abc123"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if store.calls != 1 {
		t.Errorf("store called %d times, want 1", store.calls)
	}
	if cache.setCalls != 1 {
		t.Errorf("cache populated %d times, want 1", cache.setCalls)
	}
}

func TestResolveCacheErrorIsBestEffort(t *testing.T) {
	rule := validRule()
	store := &mockRuleStore{
		findFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			return rule, nil
		},
	}
	cache := &mockRuleCache{
		getFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			return nil, errors.New("redis down")
		},
		setFunc: func(ctx context.Context, rule *RoutingRule) error {
			return errors.New("redis down")
		},
	}

	r := newTestResolver(t, store, cache, DefaultResolverOptions())

	got, err := r.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Resolve() error = %v, cache failures must not fail lookups", err)
	}
	if got.LinkID != rule.LinkID {
		t.Errorf("Resolve() = %+v, want store rule", got)
	}
}

func TestResolveInvalidCachedRuleIsDiscarded(t *testing.T) {
	rule := validRule()
	store := &mockRuleStore{
		findFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			return rule, nil
		},
	}
	cache := &mockRuleCache{
		getFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			return &RoutingRule{LinkID: "abc123"}, nil
		},
	}

	r := newTestResolver(t, store, cache, DefaultResolverOptions())

	got, err := r.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.AccountID != rule.AccountID {
		t.Errorf("Resolve() returned the corrupt cached rule, want the store rule")
	}
	if store.calls != 1 {
		t.Errorf("store called %d times, want 1", store.calls)
	}
}

func TestResolveInvalidStoreRule(t *testing.T) {
	store := &mockRuleStore{
		findFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			return &RoutingRule{
				LinkID:       "abc123",
				AccountID:    "acct-1",
				Destinations: map[string]string{"FR": "https://example.fr"},
			}, nil
		},
	}

	r := newTestResolver(t, store, nil, DefaultResolverOptions())

	_, err := r.Resolve(context.Background(), "abc123")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Resolve() error = %v, want ErrStoreUnavailable for a rule without a default", err)
	}
}

func TestResolveCancelledContext(t *testing.T) {
	store := &mockRuleStore{
		findFunc: func(ctx context.Context, linkID string) (*RoutingRule, error) {
			return nil, ctx.Err()
		},
	}

	r := newTestResolver(t, store, nil, DefaultResolverOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, "abc123")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Resolve() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestRetryDelay(t *testing.T) {
	base := 50 * time.Millisecond
	max := 400 * time.Millisecond

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 50 * time.Millisecond},
		{2, 100 * time.Millisecond},
		{3, 200 * time.Millisecond},
		{4, 400 * time.Millisecond},
		{5, 400 * time.Millisecond},
		{10, 400 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := retryDelay(base, max, tt.attempt); got != tt.want {
			t.Errorf("retryDelay(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
