package rateLimit

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

type RateLimiter struct {
	limiter *limiter.Limiter
}

// NewRateLimiter builds a limiter over store. rate uses the limiter format,
// for example "100-M".
func NewRateLimiter(store limiter.Store, rate string) (*RateLimiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{limiter: limiter.New(store, r)}, nil
}

func NewRedisRateLimiter(client *redis.Client, rate string) (*RateLimiter, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "rl", MaxRetry: 3})
	if err != nil {
		return nil, err
	}
	return NewRateLimiter(store, rate)
}

type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     int64
}

// Allow counts one hit for key. A store error lets the request through.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := rl.limiter.Get(ctx, key)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     res.Limit,
		Remaining: res.Remaining,
		Reset:     res.Reset,
	}, nil
}
