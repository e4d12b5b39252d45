package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations remembers signed-out token ids until the token would have expired.
type Revocations struct {
	client *redis.Client
}

func NewRevocations(client *redis.Client) *Revocations {
	return &Revocations{client: client}
}

func (r *Revocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, "revoked:"+tokenID, 1, ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, "revoked:"+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type Preferences struct {
	client *redis.Client
}

func NewPreferences(client *redis.Client) *Preferences {
	return &Preferences{client: client}
}

func (p *Preferences) GetTheme(ctx context.Context, key string) (bool, bool, error) {
	val, err := p.client.HGet(ctx, "prefs:"+key, "dark").Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	dark, err := strconv.ParseBool(val)
	if err != nil {
		return false, false, nil
	}
	return dark, true, nil
}

func (p *Preferences) SetTheme(ctx context.Context, key string, dark bool) error {
	return p.client.HSet(ctx, "prefs:"+key, "dark", strconv.FormatBool(dark)).Err()
}
