// Package auth is the client-side account service: sign in, registration,
// sign out, profile and password management. Successful sign-in persists
// the token pair and profile in the session store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/bartr-dev/bartr/pkg/api"
	"github.com/bartr-dev/bartr/pkg/model"
	"github.com/bartr-dev/bartr/pkg/session"
)

// ErrMissingToken is returned when an auth response carries no access token.
var ErrMissingToken = errors.New("auth: response has no access token")

// Service talks to the /auth endpoints.
type Service struct {
	client api.Doer
	store  *session.Store
	logger *slog.Logger
}

// NewService creates a Service. logger may be nil.
func NewService(client api.Doer, store *session.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, store: store, logger: logger}
}

// Login signs in with email and password and persists the session.
func (s *Service) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	req := model.LoginRequest{Email: email, Password: password}
	if err := s.client.Do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and persists the resulting session.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := s.client.Do(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) persist(ctx context.Context, resp *model.AuthResponse) error {
	if resp.AccessToken == "" {
		return ErrMissingToken
	}
	if err := s.store.SetTokens(ctx, session.Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	if resp.User != nil {
		if err := s.store.SetCachedUser(ctx, resp.User); err != nil {
			return fmt.Errorf("persist user: %w", err)
		}
	}
	return nil
}

// Logout revokes the session on the server and always clears local state.
// A failed revoke is logged and ignored.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.client.Do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		s.logger.Warn("logout request failed", "error", err)
	}
	return s.store.Clear(ctx)
}

// RequestPasswordReset asks the backend to start a password reset for email.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	return s.client.Do(ctx, http.MethodPost, "/auth/password-reset", model.PasswordResetRequest{Email: email}, nil)
}

// FetchProfile loads the signed-in user's profile and refreshes the cache.
func (s *Service) FetchProfile(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := s.client.Do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	if err := s.store.SetCachedUser(ctx, &user); err != nil {
		s.logger.Warn("cache profile failed", "error", err)
	}
	return &user, nil
}

// UpdateProfile saves profile changes and refreshes the cache.
func (s *Service) UpdateProfile(ctx context.Context, req model.UpdateProfileRequest) (*model.User, error) {
	var user model.User
	if err := s.client.Do(ctx, http.MethodPut, "/auth/me", req, &user); err != nil {
		return nil, err
	}
	if err := s.store.SetCachedUser(ctx, &user); err != nil {
		s.logger.Warn("cache profile failed", "error", err)
	}
	return &user, nil
}

// UpdatePassword changes the signed-in user's password.
func (s *Service) UpdatePassword(ctx context.Context, newPassword string) error {
	path := "/auth/me/password?newPassword=" + url.QueryEscape(newPassword)
	return s.client.Do(ctx, http.MethodPost, path, nil, nil)
}

// CurrentUser returns the cached profile, or nil when signed out.
func (s *Service) CurrentUser() *model.User {
	return s.store.CachedUser()
}

// IsAuthenticated reports whether an access token is held.
func (s *Service) IsAuthenticated() bool {
	return s.store.Authenticated()
}
