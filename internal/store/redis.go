// Package store provides session storage backends for Slotline.
//
// This file implements a Redis-backed session store. Redis key expiry is
// set to the session TTL so abandoned conversations evict themselves even
// without a read; the session layer still performs its own wall-clock
// expiry check for the SQL backends.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/slotline/slotline/internal/models"
)

const redisKeyPrefix = "slotline:session:"

// RedisStore keeps sessions as JSON values with native key expiry.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis store from a redis:// connection URL.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewRedisStore invoked", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("RedisStore DSN not set")
		return nil, fmt.Errorf("redis DSN not set")
	}

	ropts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("Redis ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Redis connection established")
	return &RedisStore{client: client}, nil
}

// GetSession loads and decodes the session value for the user.
func (s *RedisStore) GetSession(userID string) (*models.Session, error) {
	data, err := s.client.Get(context.Background(), redisKeyPrefix+userID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore GetSession failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get session for %s: %w", userID, err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		slog.Error("RedisStore GetSession decode failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to decode session for %s: %w", userID, err)
	}
	return &sess, nil
}

// SaveSession stores the session value with the session TTL.
func (s *RedisStore) SaveSession(sess models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session for %s: %w", sess.UserID, err)
	}
	err = s.client.Set(context.Background(), redisKeyPrefix+sess.UserID, data, models.SessionTTL).Err()
	if err != nil {
		slog.Error("RedisStore SaveSession failed", "error", err, "userID", sess.UserID)
		return fmt.Errorf("failed to save session for %s: %w", sess.UserID, err)
	}
	slog.Debug("RedisStore SaveSession succeeded", "userID", sess.UserID, "step", sess.Step)
	return nil
}

// DeleteSession removes the session key for the user.
func (s *RedisStore) DeleteSession(userID string) error {
	err := s.client.Del(context.Background(), redisKeyPrefix+userID).Err()
	if err != nil {
		slog.Error("RedisStore DeleteSession failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete session for %s: %w", userID, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
