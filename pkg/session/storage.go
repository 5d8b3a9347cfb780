package session

import (
	"context"
	"errors"
)

// Storage keys.
const (
	KeyAccessToken  = "bartr_access_token"
	KeyRefreshToken = "bartr_refresh_token"
	KeyCurrentUser  = "bartr_current_user"
)

// ErrStorageClosed is returned by storage operations after Close.
var ErrStorageClosed = errors.New("session: storage closed")

// Storage is a durable string key/value namespace.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Provider hands out one Storage namespace per browser session.
type Provider interface {
	// Namespace returns the storage for id, creating it on first use.
	Namespace(id string) Storage

	// Drop deletes everything stored under id.
	Drop(ctx context.Context, id string) error
}
