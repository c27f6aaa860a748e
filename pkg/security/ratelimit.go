package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/appforge/flowcore/pkg/runfail"
)

// ActionKind names a rate-limited operation class.
type ActionKind string

const (
	ActionEmailSend ActionKind = "email.send"
	ActionExprEval  ActionKind = "expr.eval"
	ActionHTTPCall  ActionKind = "http.request"
	ActionTableDDL  ActionKind = "table.ddl"
)

// RateLimiter bounds per-user action frequency. Injected so the core
// carries no hidden global counters and tests run without a process
// wide map.
type RateLimiter interface {
	Allow(ctx context.Context, userID string, kind ActionKind) error
}

// Policy is one window-bounded limit.
type Policy struct {
	Limit  int64
	Period time.Duration
}

// DefaultPolicies mirrors the platform defaults: email is the
// scarcest resource, expression evaluation the cheapest.
func DefaultPolicies() map[ActionKind]Policy {
	return map[ActionKind]Policy{
		ActionEmailSend: {Limit: 10, Period: time.Minute},
		ActionExprEval:  {Limit: 100, Period: time.Minute},
		ActionHTTPCall:  {Limit: 60, Period: time.Minute},
		ActionTableDDL:  {Limit: 20, Period: time.Minute},
	}
}

// LimiterStore is backed by ulule/limiter, one limiter per action kind.
type LimiterStore struct {
	limiters map[ActionKind]*limiter.Limiter
}

// NewMemoryRateLimiter builds an in-process limiter, the default for a
// single-node deployment and for tests.
func NewMemoryRateLimiter(policies map[ActionKind]Policy) *LimiterStore {
	store := memory.NewStore()

	return newLimiterStore(store, policies)
}

// NewRedisRateLimiter builds a limiter shared across workers through
// redis, used when REDIS_URL is configured.
func NewRedisRateLimiter(client *redis.Client, policies map[ActionKind]Policy) (*LimiterStore, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "flowcore:ratelimit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}

	return newLimiterStore(store, policies), nil
}

func newLimiterStore(store limiter.Store, policies map[ActionKind]Policy) *LimiterStore {
	limiters := make(map[ActionKind]*limiter.Limiter, len(policies))

	for kind, policy := range policies {
		limiters[kind] = limiter.New(store, limiter.Rate{
			Limit:  policy.Limit,
			Period: policy.Period,
		})
	}

	return &LimiterStore{limiters: limiters}
}

// Allow consumes one unit from the user's window for kind. Unknown
// kinds pass, only configured actions are limited.
func (s *LimiterStore) Allow(ctx context.Context, userID string, kind ActionKind) error {
	lim, ok := s.limiters[kind]
	if !ok {
		return nil
	}

	limiterCtx, err := lim.Get(ctx, fmt.Sprintf("%s:%s", kind, userID))
	if err != nil {
		return fmt.Errorf("rate limit check failed: %w", err)
	}

	if limiterCtx.Reached {
		return runfail.New(runfail.CodeRateLimited,
			fmt.Sprintf("rate limit exceeded for %s: %d per %s", kind, lim.Rate.Limit, lim.Rate.Period))
	}

	return nil
}
