package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bartr-dev/bartr"
	"github.com/bartr-dev/bartr/internal/config"
	"github.com/bartr-dev/bartr/pkg/upload"
)

func serveCmd(c *cli) *cobra.Command {
	var (
		addr string
		dsn  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the marketplace server",
		Long: `Run the REST API under /api, the live web UI and the metrics
endpoint from one process.

BARTR_AUTH_JWT_SECRET (or auth.jwt_secret) must be set.

Examples:
  bartr serve
  bartr serve --addr=:9000
  bartr serve --dsn=:memory:`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			if dsn != "" {
				c.cfg.Database.DSN = dsn
			}
			return runServe(cmd, c.cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "SQLite data source (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	appCfg, err := appConfig(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bartr.New(ctx, appCfg)
	if err != nil {
		return err
	}
	defer app.Close()

	w := cmd.OutOrStdout()
	printBanner(w)
	success(w, "Serving on %s", cfg.Server.Addr)
	info(w, "API      %s", bartr.APIPrefix)
	if appCfg.Metrics.Path != "" {
		info(w, "Metrics  %s", appCfg.Metrics.Path)
	}
	if cfg.Database.DSN == ":memory:" {
		warn(w, "In-memory database: everything is lost on exit")
	}
	return app.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}

// appConfig translates the file and environment configuration.
func appConfig(cfg *config.Config, logger *slog.Logger) (bartr.Config, error) {
	ac := bartr.DefaultConfig()
	ac.Database = bartr.DatabaseConfig{
		DSN:             cfg.Database.DSN,
		Seed:            cfg.Database.Seed,
		JanitorInterval: cfg.Database.JanitorInterval,
	}
	ac.Auth = bartr.AuthConfig{
		Secret:   cfg.Auth.JWTSecret,
		TokenTTL: cfg.Auth.TokenTTL,
	}
	ac.Session = bartr.SessionConfig{
		PersistStorage:   cfg.Session.Storage == config.StorageSQL,
		StorageMaxAge:    cfg.Session.StorageMaxAge,
		CookieName:       cfg.Session.CookieName,
		IdleTimeout:      cfg.Session.IdleTimeout,
		MaxSessions:      cfg.Session.MaxSessions,
		MaxSessionsPerIP: cfg.Session.MaxSessionsPerIP,
		EventRate:        cfg.Session.EventRate,
		EventBurst:       cfg.Session.EventBurst,
	}
	ac.Security = bartr.SecurityConfig{
		AllowedOrigins: cfg.Security.AllowedOrigins,
		SecureCookies:  cfg.Security.SecureCookies,
		TrustedProxies: cfg.Security.TrustedProxies,
	}
	ac.StaticDir = cfg.Server.StaticDir
	if cfg.Metrics.Enabled {
		ac.Metrics.Path = cfg.Metrics.Path
	} else {
		ac.Metrics.Path = ""
	}
	ac.Logger = logger

	store, err := uploadStore(cfg.Upload)
	if err != nil {
		return bartr.Config{}, err
	}
	ac.Uploads.Store = store
	if cfg.Upload.MaxSize > 0 {
		ac.Uploads.Limits.MaxFileSize = cfg.Upload.MaxSize
	}
	return ac, nil
}

func uploadStore(u config.UploadSection) (upload.Store, error) {
	switch u.Store {
	case config.UploadDisk:
		store, err := upload.NewDiskStore(u.Dir, bartr.APIPrefix+"/uploads", u.MaxSize)
		if err != nil {
			return nil, fmt.Errorf("upload dir: %w", err)
		}
		return store, nil
	case config.UploadS3:
		s3cfg := upload.S3Config{
			Bucket:    u.S3Bucket,
			Region:    u.S3Region,
			Endpoint:  u.S3Endpoint,
			AccessKey: u.S3AccessKey,
			SecretKey: u.S3SecretKey,
			Prefix:    u.S3Prefix,
			PublicURL: u.S3PublicURL,
		}
		return upload.NewS3Store(upload.NewS3Client(s3cfg), s3cfg, u.MaxSize), nil
	default:
		return nil, nil
	}
}
