// Package bootstrap prepares the infrastructure the bot needs before it
// starts receiving updates.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/studybot/core/config"
	coredatabase "github.com/m3rciful/studybot/core/database"
	"github.com/m3rciful/studybot/core/logger"
	"github.com/m3rciful/studybot/internal/catalog"
)

// Options control the bootstrap pipeline. Nil hooks fall back to the
// production implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(context.Context, coreconfig.DatabaseConfig) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Catalog *catalog.Catalog
	// DB is nil when no database is configured.
	DB *sqlx.DB
}

// Close releases the database pool, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, builds the catalog and, when configured,
// connects to the database and applies migrations.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	cat, err := catalog.Build(cfg.Catalog, cfg.Resources.Root)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: catalog: %w", err)
	}
	stats := cat.Stats()
	logger.Info(ctx, "catalog", "catalog.built",
		slog.String("status", "ok"),
		slog.Int("menus", stats.Menus),
		slog.Int("resources", stats.Resources),
		slog.Int("dangling", stats.Dangling),
		slog.String("path", cfg.Resources.Root),
	)

	res := &Result{Catalog: cat}
	if !cfg.Database.Enabled() {
		logger.Info(ctx, "db", "db.disabled", slog.String("status", "skip"))
		return res, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	res.DB = db
	return res, nil
}
