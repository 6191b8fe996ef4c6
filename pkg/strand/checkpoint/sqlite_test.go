package checkpoint_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/strandkit/strand/pkg/strand/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoints.db")

	store, err := checkpoint.NewSQLiteStore(path)
	require.NoError(t, err)

	cp := newCheckpoint("thread-1", "", "durable")
	_, err = store.Put(ctx, cp)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := checkpoint.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "thread-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, got.ID)
	assert.Equal(t, cp.Payload, got.Payload)
}

func TestSQLiteStore_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoints.db")

	store, err := checkpoint.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	cp := newCheckpoint("thread-1", "", "soon to be damaged")
	_, err = store.Put(ctx, cp)
	require.NoError(t, err)

	// Truncate the stored payload behind the store's back.
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE checkpoints SET payload = ? WHERE checkpoint_id = ?`,
		[]byte(`{"text":"trunc`), cp.ID)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = store.Get(ctx, "thread-1", "", cp.ID)
	require.Error(t, err)

	var corrupt *checkpoint.CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, cp.ID, corrupt.Ref.CheckpointID)
	assert.NotErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestSQLiteStore_CloseIdempotent(t *testing.T) {
	store, err := checkpoint.NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
