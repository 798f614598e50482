package syncstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is where the state document lives.
const DefaultKey = "contactsync:state"

// redisClient is the subset of go-redis used by the store.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Redis stores State as a JSON document under a single key. A missing key
// yields the fallback state the store was created with.
type Redis struct {
	client   redisClient
	key      string
	fallback State
}

// NewRedis creates a Redis-backed store.
func NewRedis(client redisClient, key string, fallback State) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key, fallback: fallback}
}

// Load reads the stored state.
func (r *Redis) Load(ctx context.Context) (State, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return r.fallback, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("load sync state: %w", err)
	}

	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("decode sync state: %w", err)
	}
	return s, nil
}

// Save writes the state without expiry.
func (r *Redis) Save(ctx context.Context, s State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode sync state: %w", err)
	}
	if err := r.client.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}
