package mediator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

// MockRunner for testing
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, binary string, args []string, maxOutput int) (RunResult, error) {
	called := m.Called(ctx, binary, args, maxOutput)
	return called.Get(0).(RunResult), called.Error(1)
}

func validatedPath(t *testing.T) sandbox.ValidatedPath {
	t.Helper()
	root := t.TempDir()
	roots, err := sandbox.NewRoots(root)
	require.NoError(t, err)
	p, err := sandbox.NewPathGuard(roots).Validate(root + "/doc.txt")
	require.NoError(t, err)
	return p
}

func TestInvokeArgv(t *testing.T) {
	path := validatedPath(t)
	p := path.String()

	tests := []struct {
		name   string
		tool   Tool
		args   []Arg
		binary string
		argv   []string
	}{
		{name: "list", tool: ListAttrs, binary: "xattr", argv: []string{p}},
		{name: "get", tool: GetAttr, args: []Arg{Token("user_tag")}, binary: "xattr", argv: []string{"-px", "user_tag", p}},
		{name: "set", tool: SetAttr, args: []Arg{Token("user_tag"), Bytes([]byte("hi; rm -rf /"))}, binary: "xattr", argv: []string{"-wx", "user_tag", "68693b20726d202d7266202f", p}},
		{name: "delete", tool: DeleteAttr, args: []Arg{Token("user_tag")}, binary: "xattr", argv: []string{"-d", "user_tag", p}},
		{name: "search", tool: Search, args: []Arg{Query("kMDItemFSName == '*.txt' && $(whoami)")}, binary: "mdfind", argv: []string{"-onlyin", p, "kMDItemFSName == '*.txt' && $(whoami)"}},
		{name: "reindex", tool: Reindex, binary: "mdimport", argv: []string{p}},
		{name: "metadata all", tool: GetMetadata, binary: "mdls", argv: []string{p}},
		{name: "metadata named", tool: GetMetadata, args: []Arg{Token("kMDItemFSName"), Token("kMDItemKind")}, binary: "mdls", argv: []string{"-name", "kMDItemFSName", "-name", "kMDItemKind", p}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{}
			runner.On("Run", mock.Anything, tt.binary, tt.argv, DefaultMaxOutput).
				Return(RunResult{Stdout: "ok\n"}, nil).Once()

			out, err := New(runner).Invoke(context.Background(), tt.tool, path, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, "ok\n", out)
			runner.AssertExpectations(t)
		})
	}
}

func TestInvokeRejectsBadInput(t *testing.T) {
	path := validatedPath(t)

	tests := []struct {
		name string
		tool Tool
		path sandbox.ValidatedPath
		args []Arg
	}{
		{name: "zero path", tool: ListAttrs, path: sandbox.ValidatedPath{}},
		{name: "unknown tool", tool: Tool(99), path: path},
		{name: "malformed token", tool: GetAttr, path: path, args: []Arg{Token("a;b")}},
		{name: "option token", tool: DeleteAttr, path: path, args: []Arg{Token("-r")}},
		{name: "missing token", tool: GetAttr, path: path},
		{name: "extra args", tool: ListAttrs, path: path, args: []Arg{Token("x")}},
		{name: "swapped set args", tool: SetAttr, path: path, args: []Arg{Bytes([]byte("v")), Token("x")}},
		{name: "query on get", tool: GetAttr, path: path, args: []Arg{Query("x")}},
		{name: "dash query", tool: Search, path: path, args: []Arg{Query("-0")}},
		{name: "empty query", tool: Search, path: path, args: []Arg{Query("  ")}},
		{name: "nul query", tool: Search, path: path, args: []Arg{Query("a\x00b")}},
		{name: "bytes on metadata", tool: GetMetadata, path: path, args: []Arg{Bytes(nil)}},
		{name: "zero arg", tool: GetAttr, path: path, args: []Arg{{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{}
			_, err := New(runner).Invoke(context.Background(), tt.tool, tt.path, tt.args...)
			assert.ErrorIs(t, err, sandbox.ErrInvalidInput)
			runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestInvokeOutcomes(t *testing.T) {
	path := validatedPath(t)

	t.Run("output too large", func(t *testing.T) {
		runner := &MockRunner{}
		runner.On("Run", mock.Anything, "mdfind", mock.Anything, 64).
			Return(RunResult{Stdout: "partial", Truncated: true}, nil)

		_, err := New(runner, WithMaxOutput(64)).Invoke(context.Background(), Search, path, Query("x"))
		assert.ErrorIs(t, err, sandbox.ErrOutputTooLarge)
	})

	t.Run("benign failure is empty success", func(t *testing.T) {
		runner := &MockRunner{}
		runner.On("Run", mock.Anything, "xattr", mock.Anything, mock.Anything).
			Return(RunResult{ExitCode: 1, Stderr: "xattr: " + path.String() + ": No such xattr: user_tag"}, nil)

		out, err := New(runner).Invoke(context.Background(), GetAttr, path, Token("user_tag"))
		assert.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("non-zero exit is tool failure", func(t *testing.T) {
		runner := &MockRunner{}
		runner.On("Run", mock.Anything, "xattr", mock.Anything, mock.Anything).
			Return(RunResult{ExitCode: 1, Stderr: "xattr: " + path.String() + ": Operation not permitted\n"}, nil)

		_, err := New(runner).Invoke(context.Background(), SetAttr, path, Token("t"), Bytes([]byte("v")))
		require.Error(t, err)
		var toolErr *sandbox.ToolError
		require.True(t, errors.As(err, &toolErr))
		assert.Equal(t, "set-attr", toolErr.Tool)
		assert.Contains(t, toolErr.Detail, "Operation not permitted")

		safe := sandbox.SanitizeError(err)
		assert.ErrorIs(t, safe, sandbox.ErrToolFailure)
		assert.NotContains(t, safe.Error(), path.String())
	})

	t.Run("silent non-zero exit", func(t *testing.T) {
		runner := &MockRunner{}
		runner.On("Run", mock.Anything, "mdimport", mock.Anything, mock.Anything).
			Return(RunResult{ExitCode: 3}, nil)

		_, err := New(runner).Invoke(context.Background(), Reindex, path)
		assert.EqualError(t, err, "TOOL_FAILURE: reindex: exit status 3")
	})

	t.Run("runner error", func(t *testing.T) {
		runner := &MockRunner{}
		runner.On("Run", mock.Anything, "mdls", mock.Anything, mock.Anything).
			Return(RunResult{}, errors.New("fork/exec /usr/bin/mdls: no such file or directory"))

		_, err := New(runner).Invoke(context.Background(), GetMetadata, path)
		assert.ErrorIs(t, err, sandbox.ErrToolFailure)
	})
}

// blockingRunner waits for cancellation like a hung child process.
type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, binary string, args []string, maxOutput int) (RunResult, error) {
	<-ctx.Done()
	return RunResult{}, ctx.Err()
}

func TestInvokeTimeout(t *testing.T) {
	path := validatedPath(t)

	m := New(blockingRunner{}, WithTimeout(20*time.Millisecond))
	_, err := m.Invoke(context.Background(), ListAttrs, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, sandbox.ErrToolFailure)
	assert.Contains(t, err.Error(), "timed out")
}

func TestToolBinaries(t *testing.T) {
	for _, tool := range Tools() {
		assert.True(t, tool.Valid())
		assert.Contains(t, []string{"xattr", "mdfind", "mdimport", "mdls"}, tool.Binary())
	}
	assert.ElementsMatch(t, []string{"xattr", "mdfind", "mdimport", "mdls"}, Binaries())
	assert.False(t, Tool(42).Valid())
	assert.Equal(t, "Tool(42)", Tool(42).String())
}
