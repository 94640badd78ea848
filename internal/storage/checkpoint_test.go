package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointCreate(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.AddTransaction(ctx, testExpense("Courses", "Alimentation", -30))
	require.NoError(t, err)

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	info, err := cm.Create(ctx, "avant-reset", "Sauvegarde avant remise à zéro")
	require.NoError(t, err)
	assert.Equal(t, "avant-reset", info.ID)
	assert.Equal(t, "Sauvegarde avant remise à zéro", info.Description)
	assert.Equal(t, 1, info.Transactions)
	assert.Equal(t, 8, info.Categories)
	assert.Equal(t, 0, info.SavingsGoals)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.Positive(t, info.FileSize)
	assert.WithinDuration(t, time.Now(), info.CreatedAt, 5*time.Second)
}

func TestCheckpointAutoTag(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	info, err := cm.Create(context.Background(), "", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(info.ID, "checkpoint-"), "auto tag should be generated, got %q", info.ID)
}

func TestCheckpointCreateDuplicate(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	_, err = cm.Create(ctx, "unique", "")
	require.NoError(t, err)
	_, err = cm.Create(ctx, "unique", "")
	assert.ErrorIs(t, err, ErrCheckpointExists)
}

func TestCheckpointTagValidation(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	for _, tag := range []string{"../escape", "a/b", `a\b`} {
		_, err := cm.Create(ctx, tag, "")
		assert.Error(t, err, "tag %q should be rejected", tag)
	}
}

func TestCheckpointList(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	_, err = cm.Create(ctx, "premier", "")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = cm.Create(ctx, "second", "")
	require.NoError(t, err)

	checkpoints, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, checkpoints, 2)
	assert.Equal(t, "second", checkpoints[0].ID, "newest first")
	assert.Equal(t, "premier", checkpoints[1].ID)
}

func TestCheckpointListSkipsCorruptedMetadata(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	_, err = cm.Create(ctx, "valide", "")
	require.NoError(t, err)

	corrupted := filepath.Join(cm.checkpointsDir, "cassé.meta.json")
	require.NoError(t, os.WriteFile(corrupted, []byte("{not json"), 0600))

	checkpoints, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, "valide", checkpoints[0].ID)
}

func TestCheckpointRestore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Init(ctx))

	_, err = store.AddTransaction(ctx, testExpense("Avant", "Alimentation", -30))
	require.NoError(t, err)

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)
	_, err = cm.Create(ctx, "etat-connu", "")
	require.NoError(t, err)

	_, err = store.AddTransaction(ctx, testExpense("Après", "Alimentation", -99))
	require.NoError(t, err)

	// Restore closes the database; reopen afterwards.
	require.NoError(t, cm.Restore(ctx, "etat-connu"))

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	transactions, err := reopened.GetTransactions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, "Avant", transactions[0].Title)
}

func TestCheckpointRestoreNotFound(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	err = cm.Restore(context.Background(), "inexistant")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestCheckpointDelete(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)

	_, err = cm.Create(ctx, "ephemere", "")
	require.NoError(t, err)
	require.NoError(t, cm.Delete(ctx, "ephemere"))

	checkpoints, err := cm.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, checkpoints)

	assert.ErrorIs(t, cm.Delete(ctx, "ephemere"), ErrCheckpointNotFound)
}
