package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bartr-dev/bartr/pkg/router"
	"github.com/bartr-dev/bartr/pkg/session"
	"github.com/bartr-dev/bartr/pkg/shell"
)

// SessionConfig holds configuration for individual live sessions.
type SessionConfig struct {
	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// IdleTimeout is how long a session without a connected client is kept.
	// It covers both the gap between page load and WebSocket connect and
	// reconnects after a dropped connection.
	// Default: 2 minutes.
	IdleTimeout time.Duration

	// HeartbeatInterval is the time between ping frames. The read deadline
	// is twice this interval.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// EventRate and EventBurst bound the client messages a session accepts.
	// Default: 20 per second, burst 40.
	EventRate  float64
	EventBurst int
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		EventRate:         20,
		EventBurst:        40,
	}
}

// Setup wires the views of one live session. storage is the durable
// key/value namespace of the browser the session belongs to.
type Setup func(storage session.Storage) (*shell.Registry, *router.Table)

// ServerConfig holds configuration for the live UI server.
type ServerConfig struct {
	// Setup builds the registry and route table of each session. Required.
	Setup Setup

	// Storage provides the per-browser durable storage.
	// Default: session.NewMemoryProvider().
	Storage session.Provider

	// Title is the document title suffix. Default: "Bartr".
	Title string

	// StyleSheets are linked from every page.
	StyleSheets []string

	// StaticDir, when set, is served under /static/.
	StaticDir string

	// CookieName is the browser identity cookie. Default: "bartr_browser".
	CookieName string

	// SecureCookies marks the browser cookie Secure when the request
	// arrived over TLS (directly or through a trusted proxy).
	SecureCookies bool

	// SameSite is the browser cookie SameSite mode.
	// Default: http.SameSiteLaxMode.
	SameSite http.SameSite

	// TrustedProxies lists IPs or CIDRs whose forwarding headers are
	// believed.
	TrustedProxies []string

	// CheckOrigin validates the WebSocket origin. Default: same host.
	CheckOrigin func(r *http.Request) bool

	// MaxSessions caps live sessions. 0 means no limit.
	MaxSessions int

	// MaxSessionsPerIP caps live sessions per client IP. 0 means no limit.
	MaxSessionsPerIP int

	// ReapInterval is how often idle sessions are closed.
	// Default: 30 seconds.
	ReapInterval time.Duration

	// RenderTimeout bounds how long a page request waits for the first
	// view to settle. Default: 5 seconds.
	RenderTimeout time.Duration

	// SessionConfig is the configuration for individual sessions.
	SessionConfig *SessionConfig

	// Registerer receives the live session metrics. Nil disables them.
	Registerer prometheus.Registerer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults and no
// Setup.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Title:         "Bartr",
		CookieName:    "bartr_browser",
		SameSite:      http.SameSiteLaxMode,
		ReapInterval:  30 * time.Second,
		RenderTimeout: 5 * time.Second,
		SessionConfig: DefaultSessionConfig(),
	}
}

func (c *ServerConfig) withDefaults() *ServerConfig {
	out := *c
	d := DefaultServerConfig()
	if out.Storage == nil {
		out.Storage = session.NewMemoryProvider()
	}
	if out.Title == "" {
		out.Title = d.Title
	}
	if out.CookieName == "" {
		out.CookieName = d.CookieName
	}
	if out.SameSite == 0 {
		out.SameSite = d.SameSite
	}
	if out.ReapInterval <= 0 {
		out.ReapInterval = d.ReapInterval
	}
	if out.RenderTimeout <= 0 {
		out.RenderTimeout = d.RenderTimeout
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}

	sc := DefaultSessionConfig()
	if c.SessionConfig != nil {
		given := *c.SessionConfig
		if given.WriteTimeout > 0 {
			sc.WriteTimeout = given.WriteTimeout
		}
		if given.IdleTimeout > 0 {
			sc.IdleTimeout = given.IdleTimeout
		}
		if given.HeartbeatInterval > 0 {
			sc.HeartbeatInterval = given.HeartbeatInterval
		}
		if given.MaxMessageSize > 0 {
			sc.MaxMessageSize = given.MaxMessageSize
		}
		if given.EventRate > 0 {
			sc.EventRate = given.EventRate
		}
		if given.EventBurst > 0 {
			sc.EventBurst = given.EventBurst
		}
	}
	out.SessionConfig = sc
	return &out
}
