package backend

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bartr-dev/bartr/pkg/model"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var errInvalidCredentials = badRequest("Invalid credentials")

// HashPassword hashes a password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return badRequest("Password must be at least 8 characters")
	}
	if len(pw) > 72 {
		return badRequest("Password must be at most 72 characters")
	}
	return nil
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" {
		writeError(w, r, s.logger, badRequest("Name and email are required"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, r, s.logger, badRequest("Invalid email address"))
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	user := &model.User{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Location:    strings.TrimSpace(req.Location),
		Bio:         strings.TrimSpace(req.Bio),
	}
	if err := s.store.CreateUser(r.Context(), user, hash); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeError(w, r, s.logger, badRequest("Email already registered"))
			return
		}
		writeError(w, r, s.logger, err)
		return
	}
	s.logger.Info("user registered", "user", user.ID)

	resp, err := s.issue(r.Context(), user)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	user, hash, err := s.store.UserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, r, s.logger, errInvalidCredentials)
			return
		}
		writeError(w, r, s.logger, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeError(w, r, s.logger, errInvalidCredentials)
		return
	}
	resp, err := s.issue(r.Context(), user)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// issue creates the access and refresh tokens for user.
func (s *Server) issue(ctx context.Context, user *model.User) (*model.AuthResponse, error) {
	access, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	refresh := uuid.NewString()
	if err := s.store.SaveRefreshToken(ctx, refresh, user.ID, claims.IssuedAt.Add(RefreshTokenTTL)); err != nil {
		return nil, err
	}
	return &model.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.TTL().Seconds()),
		User:         user,
	}, nil
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := r.Context().Value(claimsKey{}).(*Claims)
	ctx := r.Context()
	if err := s.store.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if err := s.store.DeleteRefreshTokens(ctx, userID(ctx)); err != nil {
		s.logger.Warn("refresh token cleanup failed", "user", userID(ctx), "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// passwordReset always answers 202 so callers cannot probe for accounts.
func (s *Server) passwordReset(w http.ResponseWriter, r *http.Request) {
	var req model.PasswordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		writeError(w, r, s.logger, badRequest("Email is required"))
		return
	}
	s.logger.Warn("password reset requested but no mail transport is configured", "email", email)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.UserByID(r.Context(), userID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, r, s.logger, errUnauthorized)
			return
		}
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	user, err := s.store.UpdateUser(r.Context(), userID(r.Context()), req)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	pw := r.URL.Query().Get("newPassword")
	if err := validatePassword(pw); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	hash, err := HashPassword(pw)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if err := s.store.SetPassword(r.Context(), userID(r.Context()), hash); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
