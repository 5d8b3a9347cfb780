package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bartr-dev/bartr/pkg/model"
)

// Tokens is the session token pair. RefreshToken may be empty.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Store holds the token pair and cached user of one client. It hydrates
// from Storage on first read and writes through on every change. Store is
// safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	storage  Storage
	logger   *slog.Logger
	hydrated bool
	tokens   Tokens
	user     *model.User
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for hydration failures.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store over storage. A nil storage keeps the session
// in memory only.
func NewStore(storage Storage, opts ...StoreOption) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &Store{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// hydrate loads state from storage once. Callers hold s.mu for writing.
func (s *Store) hydrate(ctx context.Context) {
	if s.hydrated {
		return
	}
	s.hydrated = true

	if v, ok, err := s.storage.Get(ctx, KeyAccessToken); err != nil {
		s.logger.Warn("session hydrate failed", "key", KeyAccessToken, "error", err)
	} else if ok {
		s.tokens.AccessToken = v
	}
	if v, ok, err := s.storage.Get(ctx, KeyRefreshToken); err != nil {
		s.logger.Warn("session hydrate failed", "key", KeyRefreshToken, "error", err)
	} else if ok {
		s.tokens.RefreshToken = v
	}

	raw, ok, err := s.storage.Get(ctx, KeyCurrentUser)
	if err != nil {
		s.logger.Warn("session hydrate failed", "key", KeyCurrentUser, "error", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn("discarding unreadable cached user", "error", err)
		return
	}
	s.user = &user
}

func (s *Store) snapshot() (Tokens, *model.User) {
	s.mu.RLock()
	if s.hydrated {
		defer s.mu.RUnlock()
		return s.tokens, s.user
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrate(context.Background())
	return s.tokens, s.user
}

// AccessToken returns the current access token or "".
func (s *Store) AccessToken() string {
	t, _ := s.snapshot()
	return t.AccessToken
}

// RefreshToken returns the current refresh token or "".
func (s *Store) RefreshToken() string {
	t, _ := s.snapshot()
	return t.RefreshToken
}

// Tokens returns the current token pair.
func (s *Store) Tokens() Tokens {
	t, _ := s.snapshot()
	return t
}

// Authenticated reports whether an access token is present.
func (s *Store) Authenticated() bool {
	return s.AccessToken() != ""
}

// CachedUser returns a copy of the cached user profile, or nil.
func (s *Store) CachedUser() *model.User {
	_, u := s.snapshot()
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// SetTokens replaces the token pair. An empty token removes its key.
func (s *Store) SetTokens(ctx context.Context, tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrate(ctx)

	s.tokens = tokens
	return errors.Join(
		s.put(ctx, KeyAccessToken, tokens.AccessToken),
		s.put(ctx, KeyRefreshToken, tokens.RefreshToken),
	)
}

// ClearTokens removes the token pair.
func (s *Store) ClearTokens(ctx context.Context) error {
	return s.SetTokens(ctx, Tokens{})
}

// SetCachedUser replaces the cached user; nil clears it.
func (s *Store) SetCachedUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrate(ctx)

	if user == nil {
		s.user = nil
		return s.put(ctx, KeyCurrentUser, "")
	}
	cp := *user
	s.user = &cp
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode cached user: %w", err)
	}
	return s.put(ctx, KeyCurrentUser, string(data))
}

// Clear removes tokens and cached user.
func (s *Store) Clear(ctx context.Context) error {
	return errors.Join(s.ClearTokens(ctx), s.SetCachedUser(ctx, nil))
}

// Reset drops the in-memory copy so the next read hydrates from storage
// again, as after a page reload.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrated = false
	s.tokens = Tokens{}
	s.user = nil
}

func (s *Store) put(ctx context.Context, key, value string) error {
	var err error
	if value == "" {
		err = s.storage.Remove(ctx, key)
	} else {
		err = s.storage.Set(ctx, key, value)
	}
	if err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
