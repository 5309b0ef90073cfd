// Package session carries the browser login state between requests.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vynaa/vbase/internal/util"
)

// Session is the state attached to a login cookie.
type Session struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Manager stores sessions under opaque tokens. Get returns (nil, nil)
// for an unknown or expired token.
type Manager interface {
	Create(ctx context.Context, sess Session) (string, error)
	Get(ctx context.Context, token string) (*Session, error)
	Destroy(ctx context.Context, token string) error
}

const keyPrefix = "sess:"

// RedisManager keeps sessions in redis so they survive process restarts,
// which is what makes the cold-start resync path reachable at all.
type RedisManager struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ Manager = (*RedisManager)(nil)

func NewRedis(rdb *redis.Client, ttl time.Duration) *RedisManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisManager{rdb: rdb, ttl: ttl}
}

func (m *RedisManager) Create(ctx context.Context, sess Session) (string, error) {
	token := util.NewSessionToken()
	payload, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	if err := m.rdb.Set(ctx, keyPrefix+token, payload, m.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (m *RedisManager) Get(ctx context.Context, token string) (*Session, error) {
	payload, err := m.rdb.Get(ctx, keyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (m *RedisManager) Destroy(ctx context.Context, token string) error {
	return m.rdb.Del(ctx, keyPrefix+token).Err()
}
