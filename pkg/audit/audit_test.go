package audit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLog_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLog(&buf, "json", "sess-1")

	require.NoError(t, l.Record("get-attr", "/srv/a.txt", "user_tag", true))
	require.NoError(t, l.Record("list-attrs", "/srv/b.txt", "", false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first Outcome
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "sess-1", first.SessionID)
	assert.Equal(t, "get-attr", first.Operation)
	assert.Equal(t, "/srv/a.txt", first.Target)
	assert.Equal(t, "user_tag", first.Attribute)
	assert.True(t, first.Success)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())

	assert.NotContains(t, lines[1], `"attribute"`)
}

func TestWriterLog_Text(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLog(&buf, "text", "sess-2")

	require.NoError(t, l.Record("delete-attr", "/srv/a.txt", "old", false))

	parts := strings.Split(strings.TrimSpace(buf.String()), "|")
	require.Len(t, parts, 6)
	assert.Equal(t, "session:sess-2", parts[1])
	assert.Equal(t, "delete-attr", parts[2])
	assert.Equal(t, "/srv/a.txt", parts[3])
	assert.Equal(t, "old", parts[4])
	assert.Equal(t, "failed", parts[5])
}

func TestFileLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	l, err := NewFileLog(path, "json", "s")
	require.NoError(t, err)
	require.NoError(t, l.Record("reindex", "/srv", "", true))
	require.NoError(t, l.Close())

	// Appends on reopen.
	l, err = NewFileLog(path, "json", "s")
	require.NoError(t, err)
	require.NoError(t, l.Record("reindex", "/srv", "", true))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	_, err = NewFileLog(filepath.Join(t.TempDir(), "missing", "audit.log"), "json", "s")
	assert.Error(t, err)
}

func TestSQLiteLog(t *testing.T) {
	l, err := NewSQLiteLog(filepath.Join(t.TempDir(), "db", "audit.db"), "sess-db")
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Record("set-attr", "/srv/a", "color", true))
	require.NoError(t, l.Record("set-attr", "/srv/a", "size", false))
	require.NoError(t, l.Record("search", "/srv", "", true))

	recent, err := l.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "search", recent[0].Operation)
	assert.Equal(t, "", recent[0].Attribute)
	assert.Equal(t, "size", recent[1].Attribute)
	assert.False(t, recent[1].Success)
	assert.Equal(t, "sess-db", recent[1].SessionID)
}

func TestSQLiteLog_ConcurrentRecords(t *testing.T) {
	l, err := NewSQLiteLog(":memory:", "conc")
	require.NoError(t, err)
	defer l.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Record("get-metadata", "/srv/x", "", true))
		}()
	}
	wg.Wait()

	recent, err := l.Recent(100)
	require.NoError(t, err)
	assert.Len(t, recent, 20)
}

func TestNop(t *testing.T) {
	var l Log = Nop{}
	assert.NoError(t, l.Record("x", "y", "", true))
	assert.NoError(t, l.Close())
}
