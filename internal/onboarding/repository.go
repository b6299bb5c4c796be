package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// ErrDraftNotFound is returned for unknown or expired wizard ids.
var ErrDraftNotFound = errors.New("wizard draft not found")

const (
	draftPrefix = "wizard:v1:"
	lockPrefix  = "wizard:v1:lock:"
)

// Repository persists drafts. Writes replace the whole draft.
type Repository interface {
	Save(ctx context.Context, d Draft) error
	Get(ctx context.Context, id string) (Draft, error)
	Delete(ctx context.Context, id string) error
	// Lock reserves a draft until Unlock or until ttl elapses. It reports
	// false when another holder has it.
	Lock(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, id string) error
}

// RedisRepository stores drafts as JSON values that expire after ttl of
// inactivity.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository builds a Redis-backed draft store.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

// Save writes the draft and refreshes its expiry.
func (r *RedisRepository) Save(ctx context.Context, d Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := r.client.Set(ctx, draftPrefix+d.ID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Get loads a draft by id.
func (r *RedisRepository) Get(ctx context.Context, id string) (Draft, error) {
	raw, err := r.client.Get(ctx, draftPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrDraftNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	if !d.Step.Valid() {
		return Draft{}, fmt.Errorf("decode draft: step %d out of range", d.Step)
	}
	return d, nil
}

// Delete removes a draft.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, draftPrefix+id).Err()
}

// Lock takes a SETNX lock shared by every instance using the same Redis.
func (r *RedisRepository) Lock(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockPrefix+id, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock draft: %w", err)
	}
	return ok, nil
}

// Unlock releases the lock taken by Lock.
func (r *RedisRepository) Unlock(ctx context.Context, id string) error {
	return r.client.Del(ctx, lockPrefix+id).Err()
}
