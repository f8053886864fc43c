// Package runtime wires configuration, storage, the core services and the
// HTTP server into a runnable daemon.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	app "github.com/agrichain-io/token_layer/internal/app"
	"github.com/agrichain-io/token_layer/internal/app/httpapi"
	"github.com/agrichain-io/token_layer/internal/app/metrics"
	"github.com/agrichain-io/token_layer/internal/app/storage/postgres"
	"github.com/agrichain-io/token_layer/internal/config"
	"github.com/agrichain-io/token_layer/pkg/logger"
)

// Application owns the process-level lifecycle: storage connections, the
// service graph and the HTTP server.
type Application struct {
	cfg  config.Config
	log  *logger.Logger
	core *app.Application
	srv  *http.Server
	db   *sql.DB
}

// NewApplication builds the daemon from the configuration at path.
func NewApplication(path string) (*Application, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig builds the daemon from an already-loaded config.
func NewApplicationWithConfig(cfg config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	stores, db, err := buildStores(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	core, err := app.New(app.Config{
		Admin:          cfg.Token.Admin,
		VaultAddress:   cfg.Token.VaultAddress,
		RewardRate:     cfg.Token.RewardRate,
		ExpiryInterval: cfg.Token.ExpiryInterval,
	}, stores, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", metrics.InstrumentHandler(httpapi.NewHandlerWithOptions(core, httpapi.Options{
		AuditFile: cfg.Token.AuditFile,
	})))

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Application{cfg: cfg, log: log, core: core, srv: srv, db: db}, nil
}

// Run starts background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.core.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.cfg.Server.Addr())
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server, background services and storage.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.core.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

func buildStores(cfg config.DatabaseConfig) (app.Stores, *sql.DB, error) {
	if cfg.Driver != "postgres" {
		// zero-value Stores fall back to the in-memory backend
		return app.Stores{}, nil, nil
	}

	db, err := openDatabase(cfg.DSN)
	if err != nil {
		return app.Stores{}, nil, err
	}

	store := postgres.New(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("ensure schema: %w", err)
	}

	return app.Stores{
		Ledger:     store,
		Governance: store,
		Rewards:    store,
		Stations:   store,
		Escrows:    store,
	}, db, nil
}

func openDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
