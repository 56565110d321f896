package device_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/calebmorton/vanguard/internal/device"
	"github.com/calebmorton/vanguard/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) (*device.Resolver, *storage.FileStore, *storage.SessionStore) {
	t.Helper()
	durable := storage.NewFileStore(filepath.Join(t.TempDir(), "device.json"))
	session := storage.NewSessionStore()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return device.NewResolver(durable, session, logger), durable, session
}

func TestResolver_Identifier_StableAcrossCalls(t *testing.T) {
	r, _, _ := newResolver(t)

	first := r.Identifier()
	require.NotEmpty(t, first)

	_, err := uuid.Parse(first)
	assert.NoError(t, err, "identifier should be a UUID")

	assert.Equal(t, first, r.Identifier())
}

func TestResolver_Identifier_ReusesPersisted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.json")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	r1 := device.NewResolver(storage.NewFileStore(path), storage.NewSessionStore(), logger)
	id := r1.Identifier()

	// Fresh resolver over the same durable tier sees the same identifier.
	r2 := device.NewResolver(storage.NewFileStore(path), storage.NewSessionStore(), logger)
	assert.Equal(t, id, r2.Identifier())
}

func TestResolver_Fingerprint_StableWithinSession(t *testing.T) {
	r, _, _ := newResolver(t)

	fp := r.Fingerprint()
	require.NotEmpty(t, fp)

	for i := 0; i < 5; i++ {
		assert.Equal(t, fp, r.Fingerprint())
	}
}

func TestResolver_Fingerprint_RotatesOnClear(t *testing.T) {
	r, _, _ := newResolver(t)

	before := r.Fingerprint()
	r.ClearFingerprint()
	after := r.Fingerprint()

	assert.NotEqual(t, before, after, "logout must rotate the fingerprint")
}

func TestResolver_FingerprintIndependentOfIdentifier(t *testing.T) {
	r, _, _ := newResolver(t)
	assert.NotEqual(t, r.Identifier(), r.Fingerprint())
}

// failingStore always errors, modeling disabled storage.
type failingStore struct{}

func (failingStore) Get(string) (string, error) { return "", errors.New("storage disabled") }
func (failingStore) Set(string, string) error { return errors.New("storage disabled") }
func (failingStore) Delete(string) error { return errors.New("storage disabled") }

func TestResolver_StorageFailureStillYieldsIdentifier(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	r := device.NewResolver(failingStore{}, failingStore{}, logger)

	assert.NotEmpty(t, r.Identifier())
	assert.NotEmpty(t, r.Fingerprint())
	assert.NotPanics(t, r.ClearFingerprint)
}
