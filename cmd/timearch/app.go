package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/timearch/engine/config"
	"github.com/timearch/engine/logger"
	"github.com/timearch/engine/store/postgres"
	"github.com/timearch/engine/store/sqlite"
	"github.com/timearch/engine/store/sqlstore"
	"github.com/timearch/engine/worktime"
)

// overrides are global flags; empty values keep the environment setting.
type overrides struct {
	Driver   string
	DSN      string
	LogLevel string
	LogFile  string
}

func (o overrides) apply(cfg *config.Config) {
	if o.Driver != "" {
		cfg.DBDriver = o.Driver
	}
	if o.DSN != "" {
		cfg.DSN = o.DSN
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.LogFile = o.LogFile
	}
}

// App is passed to every command's Run method.
type App struct {
	Config config.Config
	Logger *zap.Logger
}

func newApp(o overrides) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	o.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return &App{Config: cfg, Logger: log}, nil
}

// OpenStore connects to the configured database and migrates it.
func (a *App) OpenStore(ctx context.Context) (*sqlstore.Store, error) {
	a.Logger.Debug("opening store", zap.String("driver", a.Config.DBDriver))

	switch a.Config.DBDriver {
	case "postgres":
		opts := postgres.DefaultOptions()
		opts.ConnectTimeout = a.Config.QueryTimeout
		return postgres.Open(ctx, a.Config.DSN, opts)
	default:
		if err := ensureDir(a.Config.DSN); err != nil {
			return nil, err
		}
		return sqlite.Open(ctx, a.Config.DSN)
	}
}

// Engine builds an engine over store with the configured query timeout.
func (a *App) Engine(store worktime.Store) *worktime.Engine {
	engine := worktime.NewEngine(store, a.Logger.Named("engine"))
	engine.QueryTimeout = a.Config.QueryTimeout
	return engine
}

// ensureDir creates the parent directory of a SQLite file path.
func ensureDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
