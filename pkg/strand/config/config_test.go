package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/strandkit/strand/pkg/strand/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := config.Default()
	assert.Empty(t, s.CheckpointPath)
	assert.Empty(t, s.MessagePath)
	assert.Empty(t, s.AllowedTools)
	assert.Equal(t, 16, s.EventBuffer)
	assert.False(t, s.Metrics)
	assert.False(t, s.Tracing)
}

func TestFromYAML(t *testing.T) {
	s, err := config.FromYAML([]byte(`
checkpoint_path: /var/lib/strand/checkpoints.db
message_path: /var/lib/strand/messages.db
namespace: subtask
allowed_tools:
  - search
  - fetch_document
event_buffer: 64
metrics: true
`))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/strand/checkpoints.db", s.CheckpointPath)
	assert.Equal(t, "/var/lib/strand/messages.db", s.MessagePath)
	assert.Equal(t, "subtask", s.Namespace)
	assert.Equal(t, []string{"search", "fetch_document"}, s.AllowedTools)
	assert.Equal(t, 64, s.EventBuffer)
	assert.True(t, s.Metrics)
	assert.False(t, s.Tracing)
}

func TestFromYAML_PartialKeepsDefaults(t *testing.T) {
	s, err := config.FromYAML([]byte(`namespace: research`))
	require.NoError(t, err)
	assert.Equal(t, "research", s.Namespace)
	assert.Equal(t, 16, s.EventBuffer)
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := config.FromYAML([]byte(`: not yaml: [`))
	assert.Error(t, err)
}

func TestFromJSON(t *testing.T) {
	s, err := config.FromJSON([]byte(`{"message_path": "m.db", "tracing": true}`))
	require.NoError(t, err)
	assert.Equal(t, "m.db", s.MessagePath)
	assert.True(t, s.Tracing)
	assert.Equal(t, 16, s.EventBuffer)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "strand.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("namespace: filed\n"), 0o644))

	s, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "filed", s.Namespace)
}

func TestFromFile_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strand.toml")
	require.NoError(t, os.WriteFile(path, []byte("namespace = \"x\"\n"), 0o644))

	_, err := config.FromFile(path)
	assert.ErrorContains(t, err, "unsupported config file extension")
}

func TestFromFile_Missing(t *testing.T) {
	_, err := config.FromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	s := config.Default()
	s.EventBuffer = -1
	assert.Error(t, s.Validate())

	s = config.Default()
	s.AllowedTools = []string{"search", ""}
	assert.Error(t, s.Validate())

	assert.NoError(t, config.Default().Validate())
}

func TestFromYAML_RejectsInvalidSettings(t *testing.T) {
	_, err := config.FromYAML([]byte("event_buffer: -3\n"))
	assert.Error(t, err)
}
