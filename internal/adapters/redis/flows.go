package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robertarktes/travel-storefront/internal/domain"
)

// releaseLock deletes the lock only if this holder still owns it.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Flows struct {
	client *redis.Client
}

func NewFlows(client *redis.Client) *Flows {
	return &Flows{client: client}
}

func flowKey(id uuid.UUID) string { return "flow:" + id.String() }

func (f *Flows) Load(ctx context.Context, id uuid.UUID) (*domain.Flow, error) {
	val, err := f.client.Get(ctx, flowKey(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var flow domain.Flow
	if err := json.Unmarshal(val, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (f *Flows) Save(ctx context.Context, flow *domain.Flow, ttl time.Duration) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	return f.client.Set(ctx, flowKey(flow.ID), data, ttl).Err()
}

func (f *Flows) Delete(ctx context.Context, id uuid.UUID) error {
	return f.client.Del(ctx, flowKey(id)).Err()
}

func (f *Flows) Lock(ctx context.Context, id uuid.UUID, ttl time.Duration) (func(), error) {
	key := "flow-lock:" + id.String()
	token := uuid.NewString()
	res := f.client.SetNX(ctx, key, token, ttl)
	if err := res.Err(); err != nil {
		return nil, err
	}
	if !res.Val() {
		return nil, domain.ErrConflict
	}
	return func() {
		releaseLock.Run(context.Background(), f.client, []string{key}, token)
	}, nil
}
