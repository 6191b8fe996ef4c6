package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/strandkit/strand/pkg/strand/codec"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists checkpoints to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a SQLite checkpoint store.
// The path should be a file path (e.g. "./checkpoints.db") or ":memory:"
// for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// seq records commit order; "latest" means highest seq, not greatest
	// checkpoint_id.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			namespace TEXT NOT NULL,
			checkpoint_id TEXT NOT NULL,
			parent_id TEXT,
			payload_tag TEXT NOT NULL,
			payload BLOB NOT NULL,
			metadata_tag TEXT NOT NULL,
			metadata BLOB NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (thread_id, namespace, checkpoint_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_checkpoints_partition
		ON checkpoints(thread_id, namespace, seq)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint index: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pending_writes (
			thread_id TEXT NOT NULL,
			namespace TEXT NOT NULL,
			checkpoint_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			writes_tag TEXT NOT NULL,
			writes BLOB NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (thread_id, namespace, checkpoint_id, task_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create pending_writes table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put implements Store. Duplicate and parent checks run inside the same
// transaction as the insert, so racing writers cannot both succeed.
func (s *SQLiteStore) Put(ctx context.Context, cp *Checkpoint) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Ref{}, ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Ref{}, fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM checkpoints
		WHERE thread_id = ? AND namespace = ? AND checkpoint_id = ?
	`, cp.ThreadID, cp.Namespace, cp.ID).Scan(&exists)
	if err != nil {
		return Ref{}, fmt.Errorf("check duplicate: %w", err)
	}
	if exists > 0 {
		return Ref{}, ErrDuplicate
	}

	if cp.ParentID != "" {
		var parent int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM checkpoints
			WHERE thread_id = ? AND namespace = ? AND checkpoint_id = ?
		`, cp.ThreadID, cp.Namespace, cp.ParentID).Scan(&parent)
		if err != nil {
			return Ref{}, fmt.Errorf("check parent: %w", err)
		}
		if parent == 0 {
			return Ref{}, ErrParentNotFound
		}
	}

	createdAt := cp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkpoints
			(thread_id, namespace, checkpoint_id, parent_id,
			 payload_tag, payload, metadata_tag, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cp.ThreadID, cp.Namespace, cp.ID, nullable(cp.ParentID),
		cp.Payload.TypeTag, cp.Payload.Data,
		cp.Metadata.TypeTag, cp.Metadata.Data,
		createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return Ref{}, fmt.Errorf("insert checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Ref{}, fmt.Errorf("commit put: %w", err)
	}
	return cp.Ref(), nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, threadID, namespace, checkpointID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT checkpoint_id, parent_id, payload_tag, payload,
		       metadata_tag, metadata, created_at
		FROM checkpoints
		WHERE thread_id = ? AND namespace = ?
	`
	args := []any{threadID, namespace}
	if checkpointID != "" {
		query += " AND checkpoint_id = ?"
		args = append(args, checkpointID)
	}
	query += " ORDER BY seq DESC LIMIT 1"

	cp, err := s.scanCheckpoint(s.db.QueryRowContext(ctx, query, args...), threadID, namespace)
	if err != nil {
		return nil, err
	}

	if err := s.attachWrites(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, threadID, namespace string, opts ListOptions) ([]*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT checkpoint_id, parent_id, payload_tag, payload,
		       metadata_tag, metadata, created_at
		FROM checkpoints
		WHERE thread_id = ? AND namespace = ?
	`
	args := []any{threadID, namespace}

	if opts.Before != "" {
		// Restrict to rows committed strictly before the named checkpoint.
		// An unknown checkpoint applies no restriction.
		query += `
			AND seq < COALESCE((
				SELECT seq FROM checkpoints
				WHERE thread_id = ? AND namespace = ? AND checkpoint_id = ?
			), (SELECT COALESCE(MAX(seq), 0) + 1 FROM checkpoints))
		`
		args = append(args, threadID, namespace, opts.Before)
	}

	query += " ORDER BY seq DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var result []*Checkpoint
	for rows.Next() {
		cp, err := s.scanCheckpoint(rows, threadID, namespace)
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}

	for _, cp := range result {
		if err := s.attachWrites(ctx, cp); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Stage implements Store.
func (s *SQLiteStore) Stage(ctx context.Context, threadID, namespace, checkpointID, taskID string, writes codec.Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stage: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM checkpoints
		WHERE thread_id = ? AND namespace = ? AND checkpoint_id = ?
	`, threadID, namespace, checkpointID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check stage target: %w", err)
	}
	if exists == 0 {
		// Nothing to attach to yet; staging races the checkpoint write.
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pending_writes
			(thread_id, namespace, checkpoint_id, task_id, writes_tag, writes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id, namespace, checkpoint_id, task_id) DO UPDATE SET
			writes_tag = excluded.writes_tag,
			writes = excluded.writes,
			created_at = excluded.created_at
	`, threadID, namespace, checkpointID, taskID,
		writes.TypeTag, writes.Data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("stage writes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stage: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanCheckpoint(row rowScanner, threadID, namespace string) (*Checkpoint, error) {
	var (
		cp        Checkpoint
		parent    sql.NullString
		createdAt string
	)
	err := row.Scan(&cp.ID, &parent,
		&cp.Payload.TypeTag, &cp.Payload.Data,
		&cp.Metadata.TypeTag, &cp.Metadata.Data,
		&createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan checkpoint: %w", err)
	}

	cp.ThreadID = threadID
	cp.Namespace = namespace
	cp.ParentID = parent.String
	cp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	// A payload that no longer parses means the stored row was damaged.
	// Surfacing it here keeps a truncated blob from resuming as empty state.
	if !json.Valid(cp.Payload.Data) {
		return nil, &CorruptError{
			Ref: cp.Ref(),
			Err: fmt.Errorf("payload is not valid JSON"),
		}
	}

	return &cp, nil
}

// attachWrites loads staged pending writes for cp, oldest first.
func (s *SQLiteStore) attachWrites(ctx context.Context, cp *Checkpoint) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, writes_tag, writes, created_at
		FROM pending_writes
		WHERE thread_id = ? AND namespace = ? AND checkpoint_id = ?
		ORDER BY created_at, task_id
	`, cp.ThreadID, cp.Namespace, cp.ID)
	if err != nil {
		return fmt.Errorf("load pending writes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			w         PendingWrite
			createdAt string
		)
		if err := rows.Scan(&w.TaskID, &w.Writes.TypeTag, &w.Writes.Data, &createdAt); err != nil {
			return fmt.Errorf("scan pending write: %w", err)
		}
		w.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		cp.PendingWrites = append(cp.PendingWrites, w)
	}
	return rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
