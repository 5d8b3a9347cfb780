package bartr

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/bartr-dev/bartr/pkg/server"
	"github.com/bartr-dev/bartr/pkg/session"
	"github.com/bartr-dev/bartr/pkg/upload"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the application configuration.
type Config struct {
	// Database configures the SQLite store behind the API.
	Database DatabaseConfig

	// Auth configures access tokens. Auth.Secret is required.
	Auth AuthConfig

	// Uploads configures image uploads. A nil Store disables them.
	Uploads UploadConfig

	// Session configures the live UI sessions.
	Session SessionConfig

	// Security configures CORS, cookies and proxies.
	Security SecurityConfig

	// StaticDir, when set, is served under /static/.
	StaticDir string

	// StyleSheets are linked from every page.
	StyleSheets []string

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig

	// APIBaseURL is where the views reach the API. Empty routes their
	// requests to the in-process API without a network round trip.
	APIBaseURL string

	// SearchDelay is the marketplace search debounce.
	// Default: 300ms.
	SearchDelay time.Duration

	// TracerProvider for request spans. Nil uses the global provider.
	TracerProvider trace.TracerProvider

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DatabaseConfig configures the API store.
type DatabaseConfig struct {
	// DSN is the SQLite data source, for example "bartr.db" or ":memory:".
	DSN string

	// Seed inserts the demo account and sample listings into an empty
	// database.
	Seed bool

	// JanitorInterval is how often expired tokens and stale browser
	// storage are purged. Default: 10 minutes.
	JanitorInterval time.Duration
}

// AuthConfig configures access tokens.
type AuthConfig struct {
	// Secret signs the access tokens. At least 16 bytes.
	Secret string

	// TokenTTL is the access token lifetime. Default: 1 hour.
	TokenTTL time.Duration
}

// UploadConfig configures image uploads.
type UploadConfig struct {
	Store  upload.Store
	Limits *upload.Config
}

// SessionConfig configures live UI sessions and their browser storage.
type SessionConfig struct {
	// Storage holds per-browser tokens. Nil keeps them in the database
	// when PersistStorage is set, in memory otherwise.
	Storage session.Provider

	// PersistStorage stores browser storage in the API database.
	PersistStorage bool

	// StorageMaxAge purges persisted browser storage not written for this
	// long. Zero keeps it.
	StorageMaxAge time.Duration

	CookieName       string
	IdleTimeout      time.Duration
	MaxSessions      int
	MaxSessionsPerIP int
	EventRate        float64
	EventBurst       int
}

// SecurityConfig configures security features.
type SecurityConfig struct {
	// AllowedOrigins for API CORS requests.
	AllowedOrigins []string

	// SecureCookies marks the browser cookie Secure on TLS requests.
	SecureCookies bool

	// TrustedProxies lists IPs or CIDRs whose forwarding headers are
	// believed.
	TrustedProxies []string
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Path serves the metrics. Empty disables the endpoint; the
	// collectors are still registered.
	Path string

	// Registry receives every collector. Nil creates one.
	Registry *prometheus.Registry
}

// =============================================================================
// Default Configurations
// =============================================================================

// DefaultConfig returns a Config with sensible defaults. Auth.Secret must
// still be set.
func DefaultConfig() Config {
	return Config{
		Database: DefaultDatabaseConfig(),
		Auth:     AuthConfig{TokenTTL: time.Hour},
		Session:  DefaultSessionConfig(),
		Metrics:  MetricsConfig{Path: "/metrics"},
		Uploads:  UploadConfig{Limits: upload.DefaultConfig()},
	}
}

// DefaultDatabaseConfig returns a DatabaseConfig for a local file.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		DSN:             "bartr.db",
		Seed:            true,
		JanitorInterval: 10 * time.Minute,
	}
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	sc := server.DefaultSessionConfig()
	return SessionConfig{
		PersistStorage: true,
		CookieName:     server.DefaultServerConfig().CookieName,
		IdleTimeout:    sc.IdleTimeout,
		EventRate:      sc.EventRate,
		EventBurst:     sc.EventBurst,
	}
}

// =============================================================================
// Config to ServerConfig Translation
// =============================================================================

// buildServerConfig converts Config to the live server configuration.
func buildServerConfig(cfg Config, storage session.Provider, setup server.Setup, reg prometheus.Registerer, logger *slog.Logger) *server.ServerConfig {
	sc := server.DefaultServerConfig()
	sc.Setup = setup
	sc.Storage = storage
	sc.StaticDir = cfg.StaticDir
	sc.StyleSheets = cfg.StyleSheets
	sc.SecureCookies = cfg.Security.SecureCookies
	sc.TrustedProxies = cfg.Security.TrustedProxies
	sc.MaxSessions = cfg.Session.MaxSessions
	sc.MaxSessionsPerIP = cfg.Session.MaxSessionsPerIP
	sc.Registerer = reg
	sc.Logger = logger
	if cfg.Session.CookieName != "" {
		sc.CookieName = cfg.Session.CookieName
	}
	if cfg.Session.IdleTimeout > 0 {
		sc.SessionConfig.IdleTimeout = cfg.Session.IdleTimeout
	}
	if cfg.Session.EventRate > 0 {
		sc.SessionConfig.EventRate = cfg.Session.EventRate
	}
	if cfg.Session.EventBurst > 0 {
		sc.SessionConfig.EventBurst = cfg.Session.EventBurst
	}
	return sc
}
