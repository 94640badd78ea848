package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Hegrove/Serenity-Budget/internal/common"
	"github.com/Hegrove/Serenity-Budget/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var _ service.Store = (*SQLiteStore)(nil)

// SQLiteStore implements the service.Store contract on a local SQLite file.
// A single logical owner per database instance is assumed; the store
// serializes initialization so concurrent callers await the same in-flight
// schema setup instead of racing to create tables twice.
type SQLiteStore struct {
	db          *sql.DB
	dbPath      string
	initGroup   singleflight.Group
	initialized atomic.Bool
}

// NewSQLiteStore opens (creating if necessary) the database at dbPath.
// The schema is not touched until Init or the first operation runs.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("%w: cannot create database directory: %v", common.ErrInitialization, err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open database: %v", common.ErrInitialization, err)
	}

	// SQLite does not benefit from multiple connections, and a single one
	// keeps multi-statement mutations serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: cannot ping database: %v", common.ErrInitialization, err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Init migrates the schema and seeds the default categories and settings.
// Safe to call repeatedly and from multiple goroutines; only the first
// caller does the work.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if s.initialized.Load() {
		return nil
	}

	_, err, _ := s.initGroup.Do("init", func() (any, error) {
		if s.initialized.Load() {
			return nil, nil
		}
		if err := s.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInitialization, err)
		}
		if err := s.seedDefaults(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInitialization, err)
		}
		s.initialized.Store(true)
		slog.Info("database initialized", "path", s.dbPath)
		return nil, nil
	})
	return err
}

// ensureReady validates the context and lazily initializes the store, the
// same way every original operation awaited initialization before touching
// the database.
func (s *SQLiteStore) ensureReady(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.Init(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// NewCheckpointManager creates a checkpoint manager for this store.
func (s *SQLiteStore) NewCheckpointManager() (*CheckpointManager, error) {
	return NewCheckpointManager(s.db, s.dbPath)
}

// ResetAllData wipes every table and reseeds the default categories and
// settings. Destructive; callers are expected to checkpoint first.
func (s *SQLiteStore) ResetAllData(ctx context.Context) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, query := range []string{
		`DELETE FROM transactions`,
		`DELETE FROM budget_categories`,
		`DELETE FROM savings_goals`,
		`DELETE FROM user_settings`,
	} {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to wipe data: %w", err)
		}
	}

	if err := s.seedDefaultsTx(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	slog.Info("all data reset to defaults")
	return nil
}
