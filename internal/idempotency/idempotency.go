package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

// Response is a stored reply replayed for a repeated Idempotency-Key.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Result      []byte `json:"result"`
}

type Store interface {
	Get(ctx context.Context, key string) (*Response, error)
	Set(ctx context.Context, key string, resp Response, ttl time.Duration) error
	// Reserve marks key as in flight; false means another request holds it.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// reserveTTL bounds how long a crashed request can block its key.
const reserveTTL = 30 * time.Second

type Idempotency struct {
	store Store
	ttl   time.Duration
}

func NewIdempotency(store Store, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

// Key scopes a client supplied key to the caller and route so two clients
// can reuse the same value.
func Key(caller, method, path, clientKey string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{caller, method, path, strings.TrimSpace(clientKey)}, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Get returns nil when nothing was stored for key.
func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	return i.store.Get(ctx, key)
}

// Begin claims key for the current request. A false result means the same
// key is still being processed and the caller should answer without running
// the handler.
func (i *Idempotency) Begin(ctx context.Context, key string) (bool, error) {
	return i.store.Reserve(ctx, key, reserveTTL)
}

// End drops the in-flight marker taken by Begin.
func (i *Idempotency) End(ctx context.Context, key string) error {
	return i.store.Release(ctx, key)
}

// Replayable reports whether a reply with status is final. Server errors,
// conflicts and accepted-but-pending replies describe a transient state, so a
// retry with the same key must reach the handler again.
func Replayable(status int) bool {
	switch {
	case status >= 500:
		return false
	case status == http.StatusConflict, status == http.StatusAccepted:
		return false
	}
	return true
}

// Set keeps only replies worth replaying; see Replayable.
func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	if !Replayable(resp.Status) {
		return nil
	}
	return i.store.Set(ctx, key, resp, i.ttl)
}
