package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileLineCountAndFetch(t *testing.T) {
	path := writeTempFile(t, "alpha\nbeta\ngamma\n")

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 3, src.LineCount())

	lines, err := src.FetchLines(0, 3)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "alpha", string(lines[0]))
	assert.Equal(t, "beta", string(lines[1]))
	assert.Equal(t, "gamma", string(lines[2]))
}

func TestFileFetchSubrange(t *testing.T) {
	path := writeTempFile(t, "0\n1\n2\n3\n4\n")

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	lines, err := src.FetchLines(1, 4)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "1", string(lines[0]))
	assert.Equal(t, "3", string(lines[2]))
}

func TestFileWithoutTrailingNewline(t *testing.T) {
	path := writeTempFile(t, "one\ntwo")

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 2, src.LineCount())
	lines, err := src.FetchLines(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "two", string(lines[0]))
}

func TestFileCRLF(t *testing.T) {
	path := writeTempFile(t, "one\r\ntwo\r\n")

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	lines, err := src.FetchLines(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "one", string(lines[0]))
	assert.Equal(t, "two", string(lines[1]))
}

func TestFileRefreshPicksUpAppendedLines(t *testing.T) {
	path := writeTempFile(t, "a\nb\n")

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()
	require.Equal(t, 2, src.LineCount())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("c\nd\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	added, err := src.Refresh()
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 4, src.LineCount())

	lines, err := src.FetchLines(2, 4)
	require.NoError(t, err)
	assert.Equal(t, "c", string(lines[0]))
	assert.Equal(t, "d", string(lines[1]))
}

func TestFileFetchAfterCloseReportsUnavailable(t *testing.T) {
	path := writeTempFile(t, "a\nb\n")

	src, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, src.Close())

	_, err = src.FetchLines(0, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStaticFetchClamps(t *testing.T) {
	src := NewStatic([]string{"a", "b", "c"})

	lines, err := src.FetchLines(1, 99)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "b", string(lines[0]))

	lines, err = src.FetchLines(5, 9)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
