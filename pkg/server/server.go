package server

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	clientdist "github.com/bartr-dev/bartr/client/dist"
	"github.com/bartr-dev/bartr/pkg/render"
	"github.com/bartr-dev/bartr/pkg/router"
	"github.com/bartr-dev/bartr/pkg/vdom"
)

// Paths served by the live server besides pages.
const (
	ClientPath = render.DefaultClientScript
	LivePath   = "/_bartr/live"
)

// browserCookieMaxAge keeps the browser identity, and with it the durable
// session storage, for a year.
const browserCookieMaxAge = 365 * 24 * 60 * 60

// Server renders pages for the views and keeps them live over WebSockets.
type Server struct {
	config   *ServerConfig
	sessions *SessionManager
	upgrader websocket.Upgrader
	proxies  *proxyMatcher
	logger   *slog.Logger
}

// New creates a Server. config.Setup is required.
func New(config *ServerConfig) (*Server, error) {
	if config == nil || config.Setup == nil {
		return nil, errors.New("server: Setup is required")
	}
	config = config.withDefaults()
	logger := config.Logger.With("component", "server")

	m := newMetrics(config.Registerer)
	return &Server{
		config:   config,
		sessions: newSessionManager(config, m),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
		proxies: newProxyMatcher(config.TrustedProxies, logger),
		logger:  logger,
	}, nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager { return s.sessions }

// Run reaps idle sessions until ctx is done, then closes every session.
func (s *Server) Run(ctx context.Context) {
	s.sessions.Run(ctx)
	s.sessions.Close()
}

// Close closes every session.
func (s *Server) Close() {
	s.sessions.Close()
}

// Handler returns the HTTP handler for pages, the client script and the
// live endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(ClientPath, s.serveClient)
	r.Head(ClientPath, s.serveClient)
	r.Get(LivePath, s.serveLive)
	if s.config.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.config.StaticDir))))
	}
	r.Get("/", s.servePage)
	r.Get("/*", s.servePage)
	return r
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	if _, err := router.Canonicalize(path); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	browser := s.browserID(w, r)
	sess, err := s.sessions.Create(browser, clientIP(r, s.proxies), path)
	if err != nil {
		s.logger.Warn("session rejected", "error", err)
		w.Header().Set("Retry-After", "5")
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	frame := sess.Render(r.Context(), s.config.RenderTimeout)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	page := render.PageData{
		Body:        vdom.Raw(frame.HTML),
		Title:       frame.Title,
		StyleSheets: s.config.StyleSheets,
		SessionID:   sess.ID,
		Path:        frame.Path,
		Seq:         frame.Seq,
	}
	if err := render.NewRenderer(render.RendererConfig{}).RenderPage(w, page); err != nil {
		s.logger.Error("page write failed", "error", err)
	}
}

// browserID returns the browser identity cookie, issuing one when missing.
func (s *Server) browserID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.config.CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   browserCookieMaxAge,
		HttpOnly: true,
		SameSite: s.config.SameSite,
		Secure:   s.config.SecureCookies && requestSecure(r, s.proxies),
	})
	return id
}

func (s *Server) serveLive(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(r.URL.Query().Get("session"))
	if sess != nil {
		c, err := r.Cookie(s.config.CookieName)
		if err != nil || c.Value != sess.BrowserID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", "error", err)
		return
	}
	if sess == nil {
		// Expired or unknown: the client reloads into a fresh session.
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		conn.WriteJSON(serverMessage{T: msgReload})
		conn.Close()
		return
	}
	sess.Serve(conn)
}

var clientETag = func() string {
	sum := sha256.Sum256(clientdist.BartrJS)
	return fmt.Sprintf("%q", fmt.Sprintf("%x", sum[:8]))
}()

func (s *Server) serveClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", clientETag)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")

	if etagMatches(r.Header.Get("If-None-Match"), clientETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(clientdist.BartrJS)
	}
}

func etagMatches(header, etag string) bool {
	for _, part := range strings.Split(header, ",") {
		candidate := strings.TrimPrefix(strings.TrimSpace(part), "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
