// Package sqlite implements the repository against an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gmessner/simple-cr/config"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// SQLite wraps a database/sql handle on a single database file.
type SQLite struct {
	baseCtx context.Context
	log     *zap.SugaredLogger
	db      *sql.DB
	cfg     config.SQLiteConfig
}

// New creates an SQLite repository instance.
func New(ctx context.Context, log *zap.SugaredLogger, cfg *config.Config) *SQLite {
	return &SQLite{
		baseCtx: ctx,
		log:     log.Named("repo.sqlite"),
		cfg:     cfg.SQLite,
	}
}

// OnStart opens the database file and applies migrations.
func (s *SQLite) OnStart(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", s.cfg.DSN())
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps the guard-then-write sequences free of SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.PingContext(s.baseCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}

	if err := s.migrate(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.log.Infow("sqlite ready", "path", s.cfg.Path)
	return nil
}

func (s *SQLite) migrate(db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, os.DirFS(s.cfg.MigrationsDir))
	if err != nil {
		return fmt.Errorf("migrations %s: %w", s.cfg.MigrationsDir, err)
	}
	results, err := provider.Up(s.baseCtx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, r := range results {
		s.log.Debugw("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// OnStop closes the database.
func (s *SQLite) OnStop(_ context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
