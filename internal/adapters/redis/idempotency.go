package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/robertarktes/travel-storefront/internal/idempotency"
)

const (
	idempotencyPrefix = "idemp:"
	inFlightPrefix    = "idemp:lock:"
)

// Idempotency stores replayable responses for payment requests.
type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

// Get returns nil when nothing was stored under key.
func (s *Idempotency) Get(ctx context.Context, key string) (*idempotency.Response, error) {
	raw, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read stored response")
	}
	var resp idempotency.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "decode stored response")
	}
	return &resp, nil
}

// Set keeps the first response written for key; a concurrent duplicate does
// not overwrite it.
func (s *Idempotency) Set(ctx context.Context, key string, resp idempotency.Response, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.SetNX(ctx, idempotencyPrefix+key, raw, ttl).Err()
}

// Reserve takes the in-flight marker for key with SET NX.
func (s *Idempotency) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, inFlightPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "reserve idempotency key")
	}
	return ok, nil
}

func (s *Idempotency) Release(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, inFlightPrefix+key).Err(), "release idempotency key")
}
