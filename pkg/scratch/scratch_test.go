package scratch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	t.Setenv(keepEnv, "")

	ws, err := Create()
	require.NoError(t, err)
	defer ws.Cleanup()

	assert.True(t, filepath.IsAbs(ws.Dir))
	assert.FileExists(t, filepath.Join(ws.Dir, "README.md"))

	head, err := ws.Repo.Head()
	require.NoError(t, err)
	assert.False(t, head.Hash().IsZero())

	changed, err := ws.Changed()
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestChanged(t *testing.T) {
	t.Setenv(keepEnv, "")

	ws, err := Create()
	require.NoError(t, err)
	defer ws.Cleanup()

	require.NoError(t, os.WriteFile(filepath.Join(ws.Dir, "notes.txt"), []byte("x"), 0644))

	changed, err := ws.Changed()
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, changed)
}

func TestCleanup(t *testing.T) {
	t.Setenv(keepEnv, "")

	ws, err := Create()
	require.NoError(t, err)
	require.NoError(t, ws.Cleanup())

	_, err = os.Stat(ws.Dir)
	assert.True(t, os.IsNotExist(err))
}
