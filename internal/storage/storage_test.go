package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calebmorton/vanguard/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	fs := storage.NewFileStore(path)

	_, err := fs.Get("device_id")
	assert.ErrorIs(t, err, storage.ErrNoValue)

	require.NoError(t, fs.Set("device_id", "abc-123"))

	v, err := fs.Get("device_id")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", v)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	fs := storage.NewFileStore(path)
	require.NoError(t, fs.Set("device_id", "persisted"))

	reopened := storage.NewFileStore(path)
	v, err := reopened.Get("device_id")
	require.NoError(t, err)
	assert.Equal(t, "persisted", v)
}

func TestFileStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	fs := storage.NewFileStore(path)

	require.NoError(t, fs.Set("k", "v"))
	require.NoError(t, fs.Delete("k"))

	_, err := fs.Get("k")
	assert.ErrorIs(t, err, storage.ErrNoValue)
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	fs := storage.NewFileStore(path)
	_, err := fs.Get("anything")
	assert.ErrorIs(t, err, storage.ErrNoValue)
}

func TestSessionStore_RoundTrip(t *testing.T) {
	ss := storage.NewSessionStore()

	_, err := ss.Get("fingerprint")
	assert.ErrorIs(t, err, storage.ErrNoValue)

	require.NoError(t, ss.Set("fingerprint", "fp-1"))

	v, err := ss.Get("fingerprint")
	require.NoError(t, err)
	assert.Equal(t, "fp-1", v)

	require.NoError(t, ss.Delete("fingerprint"))
	_, err = ss.Get("fingerprint")
	assert.ErrorIs(t, err, storage.ErrNoValue)
}
