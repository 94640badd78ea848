package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateReachesExpectedVersion(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestMigrateIdempotent(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestMigrateClampsNegativeSpent(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	// Build a version 2 database with drifted data, then migrate.
	require.NoError(t, store.Migrate(ctx))
	_, err = store.db.ExecContext(ctx, `
		INSERT INTO budget_categories (name, allocated, spent, color) VALUES ('Drift', 100, -42, '#000000')`)
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, `PRAGMA user_version = 2`)
	require.NoError(t, err)

	require.NoError(t, store.Migrate(ctx))

	var spent float64
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT spent FROM budget_categories WHERE name = 'Drift'`).Scan(&spent))
	assert.InDelta(t, 0, spent, 0.001)
}

func TestAddColumnIfMissing(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	// Existing column: a no-op, not an error.
	require.NoError(t, addColumnIfMissing(tx, "budget_categories", "weight", "REAL NOT NULL DEFAULT 1"))

	// New column gets added once and survives a second call.
	require.NoError(t, addColumnIfMissing(tx, "budget_categories", "test_column", "TEXT"))
	require.NoError(t, addColumnIfMissing(tx, "budget_categories", "test_column", "TEXT"))

	var count int
	require.NoError(t, tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pragma_table_info('budget_categories') WHERE name = 'test_column'`).Scan(&count))
	assert.Equal(t, 1, count)
}
