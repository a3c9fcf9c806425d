package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jere1233/LingerNote-F/internal/domain/session"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
)

const storePrefix = "lingernote:session:"

// TokenStore persists session state in Redis. Meant for agent deployments
// that keep a local redis; the mobile build uses the SQLite store. Entries
// carry no TTL: session lifetime is the clock's policy, not the cache's.
type TokenStore struct {
	client *Client
}

var _ session.Store = (*TokenStore)(nil)

// NewTokenStore creates a Redis-backed token store.
func NewTokenStore(client *Client) *TokenStore {
	return &TokenStore{client: client}
}

// Get implements session.Store.
func (s *TokenStore) Get(ctx context.Context, key session.Key) (string, error) {
	value, err := s.client.client.Get(ctx, storePrefix+string(key)).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", apperrors.ErrNotFound
		}
		return "", storageErr(err, "get "+string(key))
	}
	return value, nil
}

// Set implements session.Store.
func (s *TokenStore) Set(ctx context.Context, key session.Key, value string) error {
	if err := s.client.client.Set(ctx, storePrefix+string(key), value, 0).Err(); err != nil {
		return storageErr(err, "set "+string(key))
	}
	return nil
}

// SetMany implements session.Store. The keys go through one transactional
// pipeline so a partial token triple can never land.
func (s *TokenStore) SetMany(ctx context.Context, values map[session.Key]string) error {
	pipe := s.client.client.TxPipeline()
	for key, value := range values {
		pipe.Set(ctx, storePrefix+string(key), value, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storageErr(err, "set keys")
	}
	return nil
}

// Remove implements session.Store.
func (s *TokenStore) Remove(ctx context.Context, keys ...session.Key) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = storePrefix + string(k)
	}
	if err := s.client.client.Del(ctx, full...).Err(); err != nil {
		return storageErr(err, "remove keys")
	}
	return nil
}

// Clear implements session.Store.
func (s *TokenStore) Clear(ctx context.Context) error {
	return s.Remove(ctx, session.Keys...)
}

func storageErr(err error, op string) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrStorageUnavailable, op, err)
}
