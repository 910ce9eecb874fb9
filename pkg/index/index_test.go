package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskboard", "events.json")

	idx, err := NewEventIndexAt(path)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())

	idx.Set("task-1", "evt-1")
	idx.Set("task-2", "evt-2")
	idx.Remove("task-2")
	require.NoError(t, idx.Save())

	reopened, err := NewEventIndexAt(path)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", reopened.Get("task-1"))
	assert.Empty(t, reopened.Get("task-2"))
	assert.Equal(t, 1, reopened.Len())
}

func TestSaveSkipsCleanIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	idx, err := NewEventIndexAt(path)
	require.NoError(t, err)

	require.NoError(t, idx.Save())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	idx.Set("task-1", "evt-1")
	require.NoError(t, idx.Save())
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCorruptIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewEventIndexAt(path)
	assert.Error(t, err)
}
