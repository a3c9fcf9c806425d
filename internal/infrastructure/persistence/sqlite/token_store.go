package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jere1233/LingerNote-F/internal/domain/session"
	apperrors "github.com/jere1233/LingerNote-F/pkg/errors"
)

// TokenStore persists session state in the local SQLite database.
type TokenStore struct {
	db *DB
}

var _ session.Store = (*TokenStore)(nil)

// NewTokenStore creates a SQLite-backed token store.
func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db}
}

// Get implements session.Store.
func (s *TokenStore) Get(ctx context.Context, key session.Key) (string, error) {
	var value string
	err := s.db.db.QueryRowContext(ctx,
		`SELECT value FROM auth_store WHERE key = ?`, string(key),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", storageErr(err, "get "+string(key))
	}
	return value, nil
}

// Set implements session.Store.
func (s *TokenStore) Set(ctx context.Context, key session.Key, value string) error {
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO auth_store (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		string(key), value,
	)
	if err != nil {
		return storageErr(err, "set "+string(key))
	}
	return nil
}

// SetMany implements session.Store. The write is a single transaction:
// either every key lands or none does.
func (s *TokenStore) SetMany(ctx context.Context, values map[session.Key]string) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin write")
	}
	defer tx.Rollback()

	for key, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO auth_store (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			string(key), value,
		); err != nil {
			return storageErr(err, "set "+string(key))
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit write")
	}
	return nil
}

// Remove implements session.Store.
func (s *TokenStore) Remove(ctx context.Context, keys ...session.Key) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = string(k)
	}
	_, err := s.db.db.ExecContext(ctx,
		`DELETE FROM auth_store WHERE key IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return storageErr(err, "remove keys")
	}
	return nil
}

// Clear implements session.Store.
func (s *TokenStore) Clear(ctx context.Context) error {
	if _, err := s.db.db.ExecContext(ctx, `DELETE FROM auth_store`); err != nil {
		return storageErr(err, "clear store")
	}
	return nil
}

func storageErr(err error, op string) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrStorageUnavailable, op, err)
}
