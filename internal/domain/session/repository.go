package session

import "context"

// Key is a logical key in the durable token store namespace.
type Key string

const (
	KeyUser         Key = "user"
	KeyAccessToken  Key = "access_token"
	KeyRefreshToken Key = "refresh_token"
	KeyAccessExpiry Key = "access_token_expires_at"
	KeyLastActivity Key = "last_activity"
)

// Keys lists the whole namespace, for purges.
var Keys = []Key{KeyUser, KeyAccessToken, KeyRefreshToken, KeyAccessExpiry, KeyLastActivity}

// Store is the durable key-value persistence for session state. It holds no
// business rules. Implementations report a missing key as errors.ErrNotFound
// and backend failures wrapped as errors.ErrStorageUnavailable.
type Store interface {
	// Get returns the value for key.
	Get(ctx context.Context, key Key) (string, error)

	// Set writes a single key.
	Set(ctx context.Context, key Key, value string) error

	// SetMany writes all given keys atomically: either every key is
	// persisted or none is. The token triple must go through here.
	SetMany(ctx context.Context, values map[Key]string) error

	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...Key) error

	// Clear removes the entire namespace.
	Clear(ctx context.Context) error
}
