package reader

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPlainAndGzip(t *testing.T) {
	dir := t.TempDir()
	content := "100.5 20\n200.25 40\n"

	plain := filepath.Join(dir, "peaks.txt")
	require.NoError(t, os.WriteFile(plain, []byte(content), 0o644))

	// gzip without the suffix is still detected by magic number
	zipped := filepath.Join(dir, "peaks.bin")
	f, err := os.Create(zipped)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, zipped} {
		rc, err := Open(path)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, content, string(data), path)
	}

	_, err = Open(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
