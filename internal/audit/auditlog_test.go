package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMaxSize_DefaultsWhenEmpty(t *testing.T) {
	size, err := ParseMaxSize("")
	require.NoError(t, err)
	require.Equal(t, int64(DefaultMaxSize), size)
}

func TestParseMaxSize_ParsesHumanSize(t *testing.T) {
	size, err := ParseMaxSize("5MiB")
	require.NoError(t, err)
	require.Equal(t, int64(5*1024*1024), size)
}

func TestLog_RotatesWhenExceedingMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := OpenLog(path, 16)
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Write([]byte("0123456789\n"))
	require.NoError(t, err)
	_, err = l.Write([]byte("0123456789\n"))
	require.NoError(t, err)

	_, err = os.Stat(path + ".1")
	require.NoError(t, err, "expected rotated file to exist")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0123456789\n", string(data), "fresh file should hold only the post-rotation write")
}

func TestLog_AppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := OpenLog(path, DefaultMaxSize)
	require.NoError(t, err)
	_, err = l.Write([]byte("line1\n"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l2, err := OpenLog(path, DefaultMaxSize)
	require.NoError(t, err)
	defer l2.Close()
	_, err = l2.Write([]byte("line2\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "line1\nline2\n", string(data))
}
