// Package backend is the Bartr REST API: accounts, listings, messages and
// image uploads over a SQLite store, with bearer JWT authentication.
package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bartr-dev/bartr/pkg/upload"
)

// Config configures a Server.
type Config struct {
	Store  *Store
	Tokens *TokenIssuer

	// Uploads stores images for POST /uploads. Nil disables uploads.
	Uploads      upload.Store
	UploadConfig *upload.Config

	// AllowedOrigins for CORS. Empty allows same-origin requests only.
	AllowedOrigins []string

	Logger *slog.Logger
}

// Server serves the API. Mount Handler under /api.
type Server struct {
	store   *Store
	tokens  *TokenIssuer
	uploads upload.Store
	upCfg   *upload.Config
	origins []string
	logger  *slog.Logger
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil || cfg.Tokens == nil {
		return nil, errors.New("backend: store and token issuer are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:   cfg.Store,
		tokens:  cfg.Tokens,
		uploads: cfg.Uploads,
		upCfg:   cfg.UploadConfig,
		origins: cfg.AllowedOrigins,
		logger:  logger.With("component", "backend"),
	}, nil
}

// Handler returns the API routes, relative to the mount point.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, s.logger, notFound("Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, s.logger, &Error{Status: http.StatusMethodNotAllowed, Message: "Method not allowed"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/password-reset", s.passwordReset)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/logout", s.logout)
			r.Get("/me", s.me)
			r.Put("/me", s.updateMe)
			r.Post("/me/password", s.changePassword)
		})
	})

	r.Get("/listings", s.listListings)
	r.Get("/listings/{id}", s.getListing)
	r.Get("/listings/user/{userID}", s.listingsByUser)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/user/listings", s.myListings)
		r.Post("/listings", s.createListing)
		r.Put("/listings/{id}", s.updateListing)
		r.Delete("/listings/{id}", s.deleteListing)

		r.Post("/messages", s.sendMessage)
		r.Get("/messages/inbox", s.inbox)
		r.Get("/messages/sent", s.sent)
		r.Get("/messages/unread/count", s.unreadCount)
		r.Get("/messages/listing/{id}", s.thread)
		r.Get("/messages/{id}", s.getMessage)
		r.Put("/messages/{id}/read", s.markRead)
		r.Delete("/messages/{id}", s.deleteMessage)
	})

	if s.uploads != nil {
		r.With(s.requireAuth).Post("/uploads", upload.Handler(s.uploads, s.upCfg, s.logger).ServeHTTP)
		if files, ok := s.uploads.(fileServer); ok {
			r.Get("/uploads/*", func(w http.ResponseWriter, r *http.Request) {
				files.Serve(w, r, chi.URLParam(r, "*"))
			})
		}
	}
	return r
}

// fileServer is implemented by stores that serve their own files.
type fileServer interface {
	Serve(w http.ResponseWriter, r *http.Request, key string)
}

type ctxKey struct{}

// userID returns the authenticated user id set by requireAuth.
func userID(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxKey{}).(int64)
	return id
}

// requireAuth verifies the bearer token and rejects revoked ones.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.authenticate(r)
		if err != nil {
			if !errors.Is(err, errInvalidToken) {
				writeError(w, r, s.logger, err)
				return
			}
			writeError(w, r, s.logger, errUnauthorized)
			return
		}
		id, _ := claims.UserID()
		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		ctx = context.WithValue(ctx, claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type claimsKey struct{}

func (s *Server) authenticate(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, errInvalidToken
	}
	claims, err := s.tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	revoked, err := s.store.TokenRevoked(r.Context(), claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errInvalidToken
	}
	return claims, nil
}

// Janitor purges expired token rows every interval until ctx is done.
func (s *Server) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.PurgeExpired(ctx)
			if err != nil {
				s.logger.Warn("token purge failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("purged expired tokens", "count", n)
			}
		}
	}
}
