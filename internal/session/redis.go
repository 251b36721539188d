package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ldotspots/zuco-motors/internal/models"
)

// RedisStore keeps each session as a JSON value that outlives its expiry by
// a grace period, so a late request still sees the dead session and triggers
// the implicit logout instead of silently finding nothing.
type RedisStore struct {
	client      *redis.Client
	grace       time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

func NewRedisStore(client *redis.Client, grace, rememberTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, grace: grace, rememberTTL: rememberTTL, now: time.Now}
}

func sessionKey(client string, scope Scope, namespace string) string {
	return fmt.Sprintf("zuco:sess:%s:%s:%s", client, scope, namespace)
}

func rememberKey(client string) string {
	return fmt.Sprintf("zuco:sess:%s:%s:%s", client, ScopeLong, RememberKey)
}

func (r *RedisStore) Get(ctx context.Context, client string, scope Scope, namespace string) (models.Session, bool, error) {
	if client == "" {
		return models.Session{}, false, ErrEmptyClient
	}
	raw, err := r.client.Get(ctx, sessionKey(client, scope, namespace)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, false, nil
	}
	if err != nil {
		return models.Session{}, false, fmt.Errorf("get session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// unreadable entries count as absent
		return models.Session{}, false, nil
	}
	return s, true, nil
}

func (r *RedisStore) Put(ctx context.Context, client string, scope Scope, namespace string, s models.Session) error {
	if client == "" {
		return ErrEmptyClient
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	ttl := s.ExpiresAt.Sub(r.now()) + r.grace
	if ttl <= 0 {
		ttl = r.grace
	}
	if err := r.client.Set(ctx, sessionKey(client, scope, namespace), raw, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, client string, scope Scope, namespace string) error {
	if err := r.client.Del(ctx, sessionKey(client, scope, namespace)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) SetRemember(ctx context.Context, client string) error {
	if client == "" {
		return ErrEmptyClient
	}
	return r.client.Set(ctx, rememberKey(client), "true", r.rememberTTL).Err()
}

func (r *RedisStore) Remembered(ctx context.Context, client string) (bool, error) {
	n, err := r.client.Exists(ctx, rememberKey(client)).Result()
	if err != nil {
		return false, fmt.Errorf("remember flag: %w", err)
	}
	return n == 1, nil
}

func (r *RedisStore) ClearRemember(ctx context.Context, client string) error {
	return r.client.Del(ctx, rememberKey(client)).Err()
}
