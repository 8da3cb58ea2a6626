package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/computerscienceiscool/metagate/pkg/mediator"
	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

func TestSearch(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t, func(tool mediator.Tool, path string, args []mediator.Arg) (string, error) {
		switch path {
		case env.root:
			return filepath.Join(env.root, "doc.txt") + "\n/etc/passwd\n" + filepath.Join(env.root, "sub", "a.txt") + "\n", nil
		case filepath.Join(env.root, "sub"):
			return filepath.Join(env.root, "sub", "a.txt") + "\n", nil
		}
		return "", nil
	})
	require.NoError(t, os.Mkdir(filepath.Join(env.root, "sub"), 0755))

	hits, err := env.exec.Search(context.Background(), "kMDItemFSName == '*.txt'", []string{env.root, "/etc", "sub"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(env.root, "doc.txt"),
		filepath.Join(env.root, "sub", "a.txt"),
	}, hits)
	assert.Equal(t, 2, env.invoker.callCount())
}

func TestSearch_DefaultsToRoots(t *testing.T) {
	env := newTestEnv(t, nil)

	hits, err := env.exec.Search(context.Background(), "report", nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
	require.Equal(t, 1, env.invoker.callCount())
	assert.Equal(t, env.root, env.invoker.calls[0].path)
}

func TestSearch_NoAllowedScopes(t *testing.T) {
	env := newTestEnv(t, nil)

	hits, err := env.exec.Search(context.Background(), "report", []string{"/etc", "../.."})
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
	assert.Equal(t, 0, env.invoker.callCount())
}

func TestSearch_BadQuery(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, q := range []string{"", "   ", "-0", "a\x00b"} {
		_, err := env.exec.Search(context.Background(), q, nil)
		assert.ErrorIs(t, err, sandbox.ErrInvalidInput, "query %q", q)
	}
	assert.Equal(t, 0, env.invoker.callCount())
}

func TestSearch_AllScopesFail(t *testing.T) {
	env := newTestEnv(t, func(tool mediator.Tool, path string, args []mediator.Arg) (string, error) {
		return "", &sandbox.ToolError{Tool: "mdfind", Detail: "index unavailable for " + path}
	})

	_, err := env.exec.Search(context.Background(), "report", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, sandbox.ErrToolFailure)
	assert.NotContains(t, err.Error(), env.root)
}

func TestSearchWithMetadata(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t, func(tool mediator.Tool, path string, args []mediator.Arg) (string, error) {
		switch tool {
		case mediator.Search:
			return filepath.Join(env.root, "doc.txt") + "\n" + filepath.Join(env.root, "gone.txt") + "\n", nil
		case mediator.GetMetadata:
			if filepath.Base(path) == "gone.txt" {
				return "", &sandbox.ToolError{Tool: "mdls", Detail: "could not open " + path}
			}
			return "kMDItemFSName = \"doc.txt\"\n", nil
		}
		return "", nil
	})

	results, err := env.exec.SearchWithMetadata(context.Background(), "report", nil, []string{"kMDItemFSName"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, filepath.Join(env.root, "doc.txt"), results[0].Path)
	assert.True(t, results[0].Success)
	require.Len(t, results[0].Fields, 1)
	assert.Equal(t, "kMDItemFSName", results[0].Fields[0].Name)

	assert.Equal(t, filepath.Join(env.root, "gone.txt"), results[1].Path)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	assert.NotContains(t, results[1].Error, env.root)
}
