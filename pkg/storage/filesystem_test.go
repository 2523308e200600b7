package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndResolve(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("reports/listing.csv", []byte("a,b"))
	require.NoError(t, err)
	assert.Equal(t, "reports/listing.csv", name)

	data, err := os.ReadFile(filepath.Join(store.baseDir, "reports", "listing.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b", string(data))
}

func TestSaveRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../outside.csv", "/etc/passwd", "."} {
		_, err := store.Save(name, []byte("x"))
		require.Error(t, err, name)
	}
}

func TestPruneRemovesOnlyExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("fresh.csv", []byte("keep"))
	require.NoError(t, err)
	_, err = store.Save("stale.csv", []byte("drop"))
	require.NoError(t, err)

	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "stale.csv"), old, old))

	require.NoError(t, store.Prune(24*time.Hour))

	_, err = os.Stat(filepath.Join(dir, "fresh.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "stale.csv"))
	assert.True(t, os.IsNotExist(err))
}
