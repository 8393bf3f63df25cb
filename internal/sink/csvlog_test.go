package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVLog_WritesHeaderAndRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	l, err := NewCSVLog(dir, "session-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session-1.csv"), l.Path())
	assert.Equal(t, ClassDurable, l.Class())

	require.NoError(t, l.Consume(context.Background(), View{Snapshot: testSnapshot()}))

	// rows are flushed before Consume returns
	rows := readCSV(t, l.Path())
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"2026-03-01T12:00:00.25Z", "session-1", "true",
		"0.1", "-0.2", "0.98",
		"1.5", "2.5", "-3.5",
		"0.8", "0.2", "0.3", "0.6", "0.1",
	}, rows[1])

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Consume(context.Background(), View{}), ErrClosed)
}

func TestCSVLog_AppendsWithoutSecondHeader(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		l, err := NewCSVLog(dir, "s")
		require.NoError(t, err)
		require.NoError(t, l.Consume(context.Background(), View{Snapshot: testSnapshot()}))
		require.NoError(t, l.Close())
	}

	rows := readCSV(t, filepath.Join(dir, "s.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, "timestamp", rows[0][0])
	assert.Equal(t, "2026-03-01T12:00:00.25Z", rows[2][0])
}

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "session", fileSafe(""))
	assert.Equal(t, "a_b_c", fileSafe("a/b c"))
	assert.Equal(t, "run-1.2_x", fileSafe("run-1.2_x"))
}
