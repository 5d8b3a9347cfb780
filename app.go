package bartr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/bartr-dev/bartr/internal/backend"
	"github.com/bartr-dev/bartr/internal/views"
	"github.com/bartr-dev/bartr/pkg/api"
	"github.com/bartr-dev/bartr/pkg/auth"
	"github.com/bartr-dev/bartr/pkg/listings"
	"github.com/bartr-dev/bartr/pkg/messages"
	"github.com/bartr-dev/bartr/pkg/middleware"
	"github.com/bartr-dev/bartr/pkg/router"
	"github.com/bartr-dev/bartr/pkg/server"
	"github.com/bartr-dev/bartr/pkg/session"
	"github.com/bartr-dev/bartr/pkg/shell"
)

// =============================================================================
// App Type
// =============================================================================

// APIPrefix is where the REST API is mounted.
const APIPrefix = "/api"

// internalAPIBase is the base URL of in-process API requests. The host is
// never resolved.
const internalAPIBase = "http://bartr.internal" + APIPrefix

// App is the whole Bartr process: the REST API under /api, the live UI for
// every other path and the metrics endpoint, behind one http.Handler.
//
//	app, err := bartr.New(ctx, cfg)
//	if err != nil { ... }
//	defer app.Close()
//	go app.Run(ctx)
//	http.ListenAndServe(":8080", app)
type App struct {
	config   Config
	store    *backend.Store
	api      *backend.Server
	ui       *server.Server
	storage  session.Provider
	sqlStore *session.SQLStorage
	registry *prometheus.Registry

	handler    http.Handler
	apiBase    string
	httpClient *http.Client
	logger     *slog.Logger

	closeOnce sync.Once
}

// New opens the database and builds the application.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.Database.DSN == "" {
		cfg.Database = DefaultDatabaseConfig()
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = time.Hour
	}
	if cfg.Database.JanitorInterval <= 0 {
		cfg.Database.JanitorInterval = DefaultDatabaseConfig().JanitorInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := cfg.Metrics.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	tokens, err := backend.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	store, err := backend.OpenStore(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Seed {
		seeded, err := store.Seed(ctx)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
		if seeded {
			logger.Info("seeded demo data", "accounts", "alex@example.com, maya@example.com, jordan@example.com")
		}
	}

	a := &App{
		config:   cfg,
		store:    store,
		registry: registry,
		logger:   logger,
	}

	a.storage = cfg.Session.Storage
	if a.storage == nil {
		if cfg.Session.PersistStorage {
			a.sqlStore = session.NewSQLStorage(store.DB())
			if err := a.sqlStore.CreateTable(ctx); err != nil {
				store.Close()
				return nil, err
			}
			a.storage = a.sqlStore
		} else {
			a.storage = session.NewMemoryProvider()
		}
	}

	a.api, err = backend.New(backend.Config{
		Store:          store,
		Tokens:         tokens,
		Uploads:        cfg.Uploads.Store,
		UploadConfig:   cfg.Uploads.Limits,
		AllowedOrigins: cfg.Security.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	a.ui, err = server.New(buildServerConfig(cfg, a.storage, a.setup, registry, logger))
	if err != nil {
		store.Close()
		return nil, err
	}

	a.handler = a.routes()
	if cfg.APIBaseURL != "" {
		a.apiBase = cfg.APIBaseURL
		a.httpClient = &http.Client{Timeout: 30 * time.Second}
	} else {
		a.apiBase = internalAPIBase
		a.httpClient = &http.Client{Transport: handlerTransport{a.handler}}
	}
	return a, nil
}

func (a *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(a.logger))
	r.Use(middleware.Tracing(middleware.WithTracerProvider(a.config.TracerProvider)))
	r.Use(middleware.NewMetrics(middleware.WithRegistry(a.registry)).Handler)

	r.Mount(APIPrefix, a.api.Handler())
	if path := a.config.Metrics.Path; path != "" {
		r.Handle(path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}
	r.Mount("/", a.ui.Handler())
	return r
}

// setup builds the views of one live session over the browser's storage.
func (a *App) setup(storage session.Storage) (*shell.Registry, *router.Table) {
	store := session.NewStore(storage, session.WithLogger(a.logger))
	client := api.New(a.apiBase, store,
		api.WithHTTPClient(a.httpClient),
		api.WithLogger(a.logger),
		api.WithTracerProvider(a.config.TracerProvider),
	)

	reg := shell.NewRegistry()
	views.Install(reg, views.Deps{
		Session:     store,
		Auth:        auth.NewService(client, store, a.logger),
		Listings:    listings.NewService(client),
		Messages:    messages.NewService(client),
		Logger:      a.logger,
		SearchDelay: a.config.SearchDelay,
	})

	table := router.NewTable(router.DefaultRoutes())
	table.AddRoute("/messages", router.ComponentMessages)
	return reg, table
}

// =============================================================================
// http.Handler Implementation
// =============================================================================

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Handler returns the application handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Store returns the API database.
func (a *App) Store() *backend.Store { return a.store }

// UI returns the live UI server.
func (a *App) UI() *server.Server { return a.ui }

// Storage returns the per-browser storage provider.
func (a *App) Storage() session.Provider { return a.storage }

// Registry returns the metrics registry.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// =============================================================================
// Lifecycle
// =============================================================================

// Run runs the background work until ctx is done: idle session reaping,
// expired token purging and stale browser storage purging.
func (a *App) Run(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		a.ui.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.api.Janitor(ctx, a.config.Database.JanitorInterval)
		return nil
	})
	if a.sqlStore != nil && a.config.Session.StorageMaxAge > 0 {
		g.Go(func() error {
			a.purgeStorage(ctx)
			return nil
		})
	}
	g.Wait()
}

func (a *App) purgeStorage(ctx context.Context) {
	ticker := time.NewTicker(a.config.Database.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := a.sqlStore.Purge(ctx, now.Add(-a.config.Session.StorageMaxAge))
			if err != nil {
				a.logger.Warn("browser storage purge failed", "error", err)
				continue
			}
			if n > 0 {
				a.logger.Debug("purged browser storage", "rows", n)
			}
		}
	}
}

// ListenAndServe serves on addr and runs the background work until ctx is
// done, then shuts down within shutdownTimeout.
func (a *App) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.ui.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Close closes every session and the database.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.ui.Close()
		if a.sqlStore != nil {
			a.sqlStore.Close()
		}
		err = a.store.Close()
	})
	return err
}

// handlerTransport serves requests with an in-process handler.
type handlerTransport struct {
	h http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		defer req.Body.Close()
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	t.h.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
