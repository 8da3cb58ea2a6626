package mediator

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &limitedWriter{buf: &buf, limit: 5}

	n, err := w.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, w.overflow)

	n, err = w.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.True(t, w.overflow)
	assert.Equal(t, "abcde", buf.String())

	n, err = w.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcde", buf.String())
}

func TestLimitedWriter_NoLimit(t *testing.T) {
	var buf bytes.Buffer
	w := &limitedWriter{buf: &buf}

	_, err := w.Write(bytes.Repeat([]byte("x"), 1<<16))
	require.NoError(t, err)
	assert.False(t, w.overflow)
	assert.Equal(t, 1<<16, buf.Len())
}

func TestLocalRunnerRejectsUnlistedBinary(t *testing.T) {
	r := NewLocalRunner("")
	assert.Equal(t, "/usr/bin", r.Dir)

	for _, binary := range []string{"sh", "/bin/sh", "../xattr", "xattr; id"} {
		_, err := r.Run(context.Background(), binary, nil, 0)
		assert.Error(t, err, binary)
	}
}

func TestParseMemoryLimit(t *testing.T) {
	tests := map[string]int64{
		"":     0,
		"512":  512,
		"64k":  64 * 1024,
		"256m": 256 * 1024 * 1024,
		"1G":   1024 * 1024 * 1024,
		"lots": 0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseMemoryLimit(in), in)
	}
}

func TestDemux(t *testing.T) {
	frame := func(stdout, stderr string) *bytes.Buffer {
		var buf bytes.Buffer
		_, err := stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(stdout))
		require.NoError(t, err)
		if stderr != "" {
			_, err = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(stderr))
			require.NoError(t, err)
		}
		return &buf
	}

	t.Run("stderr flood is cut but not reported", func(t *testing.T) {
		var res RunResult
		require.NoError(t, demux(frame("ok", strings.Repeat("e", 64)), 8, &res))
		assert.Equal(t, "ok", res.Stdout)
		assert.Equal(t, "eeeeeeee", res.Stderr)
		assert.False(t, res.Truncated)
	})

	t.Run("stdout overflow is reported", func(t *testing.T) {
		var res RunResult
		require.NoError(t, demux(frame(strings.Repeat("o", 64), ""), 8, &res))
		assert.Len(t, res.Stdout, 8)
		assert.True(t, res.Truncated)
	})
}
