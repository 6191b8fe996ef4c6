package message_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/strandkit/strand/pkg/strand/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logFactory func(t *testing.T) message.Log

// logContractTest runs contract tests against any Log implementation.
func logContractTest(t *testing.T, name string, factory logFactory) {
	ctx := context.Background()

	t.Run(name+"/Append_and_List", func(t *testing.T) {
		log := factory(t)
		defer log.Close()

		human := message.New("thread-1", message.RoleHuman, "What is Article 21?")
		require.NoError(t, log.Append(ctx, human))

		assistant := message.New("thread-1", message.RoleAssistant, "Article 21 guarantees...").
			WithToolCalls([]message.ToolCall{{
				Name:   "internet_search",
				Input:  map[string]any{"query": "Article 21"},
				Output: "found it",
			}})
		require.NoError(t, log.Append(ctx, assistant))

		msgs, err := log.List(ctx, "thread-1", 0)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, message.RoleHuman, msgs[0].Role)
		assert.Equal(t, message.RoleAssistant, msgs[1].Role)
		require.Len(t, msgs[1].ToolCalls, 1)
		assert.Equal(t, "internet_search", msgs[1].ToolCalls[0].Name)
		assert.Equal(t, "found it", msgs[1].ToolCalls[0].Output)
	})

	t.Run(name+"/List_PreservesAppendOrder", func(t *testing.T) {
		log := factory(t)
		defer log.Close()

		for _, content := range []string{"one", "two", "three"} {
			require.NoError(t, log.Append(ctx, message.New("thread-1", message.RoleHuman, content)))
		}

		msgs, err := log.List(ctx, "thread-1", 0)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "one", msgs[0].Content)
		assert.Equal(t, "two", msgs[1].Content)
		assert.Equal(t, "three", msgs[2].Content)
	})

	t.Run(name+"/List_Limit", func(t *testing.T) {
		log := factory(t)
		defer log.Close()

		for _, content := range []string{"one", "two", "three"} {
			require.NoError(t, log.Append(ctx, message.New("thread-1", message.RoleHuman, content)))
		}

		msgs, err := log.List(ctx, "thread-1", 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "one", msgs[0].Content)
	})

	t.Run(name+"/ThreadIsolation", func(t *testing.T) {
		log := factory(t)
		defer log.Close()

		require.NoError(t, log.Append(ctx, message.New("thread-A", message.RoleHuman, "a")))
		require.NoError(t, log.Append(ctx, message.New("thread-B", message.RoleHuman, "b")))

		msgs, err := log.List(ctx, "thread-A", 0)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "a", msgs[0].Content)
	})

	t.Run(name+"/EmptyThread", func(t *testing.T) {
		log := factory(t)
		defer log.Close()

		msgs, err := log.List(ctx, "thread-empty", 0)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run(name+"/Closed", func(t *testing.T) {
		log := factory(t)
		require.NoError(t, log.Close())

		err := log.Append(ctx, message.New("thread-1", message.RoleHuman, "late"))
		assert.ErrorIs(t, err, message.ErrLogClosed)

		_, err = log.List(ctx, "thread-1", 0)
		assert.ErrorIs(t, err, message.ErrLogClosed)
	})
}

func TestMemoryLogContract(t *testing.T) {
	logContractTest(t, "memory", func(t *testing.T) message.Log {
		return message.NewMemoryLog()
	})
}

func TestSQLiteLogContract(t *testing.T) {
	logContractTest(t, "sqlite", func(t *testing.T) message.Log {
		log, err := message.NewSQLiteLog(filepath.Join(t.TempDir(), "messages.db"))
		require.NoError(t, err)
		return log
	})
}

func TestSQLiteLog_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "messages.db")

	log, err := message.NewSQLiteLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Append(ctx, message.New("thread-1", message.RoleHuman, "durable")))
	require.NoError(t, log.Close())

	reopened, err := message.NewSQLiteLog(path)
	require.NoError(t, err)
	defer reopened.Close()

	msgs, err := reopened.List(ctx, "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "durable", msgs[0].Content)
}
