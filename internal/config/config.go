// Package config loads the bartr configuration from an optional YAML file
// and BARTR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Config is the complete bartr configuration.
type Config struct {
	Server   ServerSection   `koanf:"server"`
	Database DatabaseSection `koanf:"database"`
	Auth     AuthSection     `koanf:"auth"`
	Upload   UploadSection   `koanf:"upload"`
	Session  SessionSection  `koanf:"session"`
	Security SecuritySection `koanf:"security"`
	Metrics  MetricsSection  `koanf:"metrics"`
	Log      LogSection      `koanf:"log"`
	Client   ClientSection   `koanf:"client"`
}

// ServerSection configures the HTTP listener.
type ServerSection struct {
	Addr            string        `koanf:"addr"`
	StaticDir       string        `koanf:"static_dir"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseSection configures the SQLite database.
type DatabaseSection struct {
	DSN string `koanf:"dsn"`
	// Seed inserts the demo account and sample listings into an empty
	// database.
	Seed bool `koanf:"seed"`
	// JanitorInterval is how often expired tokens are purged.
	JanitorInterval time.Duration `koanf:"janitor_interval"`
}

// AuthSection configures access tokens.
type AuthSection struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

// Upload stores.
const (
	UploadNone = "none"
	UploadDisk = "disk"
	UploadS3   = "s3"
)

// UploadSection configures image uploads. The S3 settings are flat so each
// has a single environment variable, e.g. BARTR_UPLOAD_S3_BUCKET.
type UploadSection struct {
	Store   string `koanf:"store"`
	Dir     string `koanf:"dir"`
	MaxSize int64  `koanf:"max_size"`

	S3Bucket    string `koanf:"s3_bucket"`
	S3Region    string `koanf:"s3_region"`
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`
	S3Prefix    string `koanf:"s3_prefix"`
	S3PublicURL string `koanf:"s3_public_url"`
}

// Session storages.
const (
	StorageMemory = "memory"
	StorageSQL    = "sql"
)

// SessionSection configures live UI sessions.
type SessionSection struct {
	// Storage holds the per-browser tokens: "sql" keeps them in the
	// database across restarts, "memory" does not.
	Storage          string        `koanf:"storage"`
	CookieName       string        `koanf:"cookie_name"`
	IdleTimeout      time.Duration `koanf:"idle_timeout"`
	MaxSessions      int           `koanf:"max_sessions"`
	MaxSessionsPerIP int           `koanf:"max_sessions_per_ip"`
	EventRate        float64       `koanf:"event_rate"`
	EventBurst       int           `koanf:"event_burst"`
	// StorageMaxAge purges browser storage not written for this long.
	// Zero keeps it forever.
	StorageMaxAge time.Duration `koanf:"storage_max_age"`
}

// SecuritySection configures CORS, cookies and proxies.
type SecuritySection struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
	SecureCookies  bool     `koanf:"secure_cookies"`
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LogSection configures the process logger.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ClientSection configures the command-line client.
type ClientSection struct {
	BaseURL string `koanf:"base_url"`
	// SessionFile holds the CLI tokens. Empty uses the user config dir.
	SessionFile string        `koanf:"session_file"`
	Timeout     time.Duration `koanf:"timeout"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerSection{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseSection{
			DSN:             "bartr.db",
			Seed:            true,
			JanitorInterval: 10 * time.Minute,
		},
		Auth: AuthSection{
			TokenTTL: time.Hour,
		},
		Upload: UploadSection{
			Store:   UploadDisk,
			Dir:     "uploads",
			MaxSize: 5 << 20,
		},
		Session: SessionSection{
			Storage:     StorageSQL,
			CookieName:  "bartr_browser",
			IdleTimeout: 2 * time.Minute,
			EventRate:   20,
			EventBurst:  40,
		},
		Metrics: MetricsSection{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogSection{
			Level:  "info",
			Format: "text",
		},
		Client: ClientSection{
			BaseURL: "http://localhost:8080/api",
			Timeout: 15 * time.Second,
		},
	}
}

// Validation errors.
var (
	ErrMissingSecret = errors.New("config: auth.jwt_secret must be at least 16 bytes")
	ErrInvalidValue  = errors.New("config: invalid value")
)

// Validate checks the settings the server needs. The client commands only
// need Client and Log.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return ErrMissingSecret
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalidValue)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is empty", ErrInvalidValue)
	}
	switch c.Upload.Store {
	case UploadNone:
	case UploadDisk:
		if c.Upload.Dir == "" {
			return fmt.Errorf("%w: upload.dir is empty", ErrInvalidValue)
		}
	case UploadS3:
		if c.Upload.S3Bucket == "" || c.Upload.S3Region == "" {
			return fmt.Errorf("%w: upload.s3_bucket and upload.s3_region are required", ErrInvalidValue)
		}
	default:
		return fmt.Errorf("%w: upload.store %q", ErrInvalidValue, c.Upload.Store)
	}
	switch c.Session.Storage {
	case StorageMemory, StorageSQL:
	default:
		return fmt.Errorf("%w: session.storage %q", ErrInvalidValue, c.Session.Storage)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path %q", ErrInvalidValue, c.Metrics.Path)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	return nil
}

func (l LogSection) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidValue, l.Level)
	}
	return level, nil
}

// NewLogger builds the process logger writing to w.
func (l LogSection) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(l.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: log.format %q", ErrInvalidValue, l.Format)
	}
}
