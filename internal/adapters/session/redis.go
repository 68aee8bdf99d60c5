package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/metrics"
)

// RedisStore хранит сессии пользователей в Redis с TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ domain.SessionStore = (*RedisStore)(nil)

// NewRedisStore создаёт таблицу сессий поверх клиента Redis.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "session:", ttl: ttl}
}

func (s *RedisStore) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

// Get возвращает сессию пользователя.
func (s *RedisStore) Get(ctx context.Context, userID int64) (domain.Session, bool, error) {
	start := time.Now()
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "session_get", "sessions", start, nil)
		return domain.Session{}, false, nil
	}
	metrics.ObserveNetworkRequest("redis", "session_get", "sessions", start, err)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("чтение сессии: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, false, fmt.Errorf("разбор сессии: %w", err)
	}
	return sess, true, nil
}

// Put перезаписывает сессию целиком и продлевает TTL.
func (s *RedisStore) Put(ctx context.Context, sess domain.Session) error {
	if sess.Empty() {
		return s.Delete(ctx, sess.UserID)
	}
	sess.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("сериализация сессии: %w", err)
	}
	start := time.Now()
	err = s.client.Set(ctx, s.key(sess.UserID), raw, s.ttl).Err()
	metrics.ObserveNetworkRequest("redis", "session_set", "sessions", start, err)
	return err
}

// Delete удаляет сессию.
func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	start := time.Now()
	err := s.client.Del(ctx, s.key(userID)).Err()
	metrics.ObserveNetworkRequest("redis", "session_del", "sessions", start, err)
	return err
}
