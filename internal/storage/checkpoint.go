package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Hegrove/Serenity-Budget/internal/common"
)

// CheckpointManager backs up and restores the budget database. Callers are
// expected to create a checkpoint before destructive operations such as a
// full data reset.
type CheckpointManager struct {
	db             *sql.DB
	dbPath         string
	checkpointsDir string
}

// CheckpointMetadata is persisted as a JSON sidecar next to each checkpoint
// file.
type CheckpointMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
}

// CheckpointInfo summarizes a checkpoint for listing.
type CheckpointInfo struct {
	CreatedAt     time.Time
	ID            string
	Description   string
	FileSize      int64
	Transactions  int
	Categories    int
	SavingsGoals  int
	SchemaVersion int
}

// Checkpoint errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
)

// checkpointTables are the data tables counted in checkpoint metadata.
var checkpointTables = []string{"transactions", "budget_categories", "savings_goals"}

// NewCheckpointManager creates a checkpoint manager rooted next to the
// database file.
func NewCheckpointManager(db *sql.DB, dbPath string) (*CheckpointManager, error) {
	checkpointsDir := filepath.Join(filepath.Dir(dbPath), "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &CheckpointManager{
		db:             db,
		dbPath:         dbPath,
		checkpointsDir: checkpointsDir,
	}, nil
}

// Create writes a consistent snapshot of the database under the given tag.
// An empty tag gets a generated one.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointInfo, error) {
	if tag == "" {
		tag = fmt.Sprintf("checkpoint-%s", uuid.NewString()[:8])
	}
	if err := validateCheckpointTag(tag); err != nil {
		return nil, err
	}

	checkpointPath := filepath.Join(cm.checkpointsDir, tag+".db")
	if _, err := os.Stat(checkpointPath); err == nil {
		return nil, ErrCheckpointExists
	}

	var schemaVersion int
	if err := cm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	rowCounts := make(map[string]int, len(checkpointTables))
	for _, table := range checkpointTables {
		var count int
		if err := cm.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count rows in %s: %w", table, err)
		}
		rowCounts[table] = count
	}

	// VACUUM INTO produces a consistent snapshot without closing the
	// connection.
	if _, err := cm.db.ExecContext(ctx, `VACUUM INTO ?`, checkpointPath); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	info, err := os.Stat(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	metadata := CheckpointMetadata{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      info.Size(),
		RowCounts:     rowCounts,
		SchemaVersion: schemaVersion,
	}

	if err := cm.saveMetadata(tag, metadata); err != nil {
		_ = os.Remove(checkpointPath)
		return nil, fmt.Errorf("failed to save checkpoint metadata: %w", err)
	}

	return checkpointInfoFromMetadata(metadata), nil
}

// List returns all checkpoints, newest first.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.checkpointsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	checkpoints := make([]CheckpointInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		tag := strings.TrimSuffix(entry.Name(), ".meta.json")
		metadata, err := cm.loadMetadata(tag)
		if err != nil {
			// Corrupted metadata hides the checkpoint from listings but
			// must not fail the whole scan.
			common.LogError(err, "skipping unreadable checkpoint metadata", common.Fields{"tag": tag})
			continue
		}
		checkpoints = append(checkpoints, *checkpointInfoFromMetadata(*metadata))
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].CreatedAt.After(checkpoints[j].CreatedAt)
	})
	return checkpoints, nil
}

// Restore replaces the live database file with the checkpoint. The caller
// owns reopening the store afterwards; the previous state is kept as a
// .restore-backup file until the copy succeeds.
func (cm *CheckpointManager) Restore(_ context.Context, checkpointID string) error {
	if err := validateCheckpointTag(checkpointID); err != nil {
		return err
	}

	checkpointPath := filepath.Join(cm.checkpointsDir, checkpointID+".db")
	if _, err := os.Stat(checkpointPath); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}

	if _, err := cm.loadMetadata(checkpointID); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpointCorrupted, err)
	}

	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	backupPath := cm.dbPath + ".restore-backup"
	if err := copyFile(cm.dbPath, backupPath); err != nil {
		return fmt.Errorf("failed to back up current database: %w", err)
	}

	if err := copyFile(checkpointPath, cm.dbPath); err != nil {
		if restoreErr := copyFile(backupPath, cm.dbPath); restoreErr != nil {
			return fmt.Errorf("failed to restore checkpoint and to roll back: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}

	_ = os.Remove(backupPath)
	return nil
}

// Delete removes a checkpoint and its metadata.
func (cm *CheckpointManager) Delete(_ context.Context, checkpointID string) error {
	if err := validateCheckpointTag(checkpointID); err != nil {
		return err
	}

	checkpointPath := filepath.Join(cm.checkpointsDir, checkpointID+".db")
	if _, err := os.Stat(checkpointPath); os.IsNotExist(err) {
		return ErrCheckpointNotFound
	}

	if err := os.Remove(checkpointPath); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	_ = os.Remove(filepath.Join(cm.checkpointsDir, checkpointID+".meta.json"))
	return nil
}

func (cm *CheckpointManager) saveMetadata(tag string, metadata CheckpointMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cm.checkpointsDir, tag+".meta.json"), data, 0600)
}

func (cm *CheckpointManager) loadMetadata(tag string) (*CheckpointMetadata, error) {
	data, err := os.ReadFile(filepath.Join(cm.checkpointsDir, tag+".meta.json"))
	if err != nil {
		return nil, err
	}
	var metadata CheckpointMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func checkpointInfoFromMetadata(metadata CheckpointMetadata) *CheckpointInfo {
	return &CheckpointInfo{
		ID:            metadata.ID,
		CreatedAt:     metadata.CreatedAt,
		Description:   metadata.Description,
		FileSize:      metadata.FileSize,
		Transactions:  metadata.RowCounts["transactions"],
		Categories:    metadata.RowCounts["budget_categories"],
		SavingsGoals:  metadata.RowCounts["savings_goals"],
		SchemaVersion: metadata.SchemaVersion,
	}
}

// validateCheckpointTag rejects tags that could escape the checkpoints
// directory.
func validateCheckpointTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("%w: checkpoint tag", ErrEmptyString)
	}
	if strings.Contains(tag, "/") || strings.Contains(tag, "\\") || strings.Contains(tag, "..") {
		return errors.New("invalid checkpoint tag: cannot contain path separators")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
