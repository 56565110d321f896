package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is a small string key-value tier. The device resolver owns two of
// these with different retention: a durable one surviving restarts and a
// session-scoped one cleared when the process ends.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// FileStore persists values as a JSON object in a single file. Writes go
// through to disk immediately so a crash never loses the device identifier.
type FileStore struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

// NewFileStore opens (or lazily creates) the store at path. A missing or
// unreadable file starts empty rather than failing.
func NewFileStore(path string) *FileStore {
	fs := &FileStore{
		path:   path,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err == nil {
		// Corrupt contents start empty, same as a missing file.
		_ = json.Unmarshal(data, &fs.values)
	}
	if fs.values == nil {
		fs.values = make(map[string]string)
	}
	return fs
}

// Get returns the stored value, or ErrNoValue when absent.
func (fs *FileStore) Get(key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	v, ok := fs.values[key]
	if !ok || v == "" {
		return "", ErrNoValue
	}
	return v, nil
}

// Set stores the value and flushes the file.
func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.values[key] = value
	return fs.flush()
}

// Delete removes the value and flushes the file.
func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.values, key)
	return fs.flush()
}

func (fs *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.MarshalIndent(fs.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	return nil
}

// SessionStore holds values only for the lifetime of the process, the client
// equivalent of session-scoped browser storage.
type SessionStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewSessionStore creates an empty session-scoped store.
func NewSessionStore() *SessionStore {
	return &SessionStore{values: make(map[string]string)}
}

// Get returns the stored value, or ErrNoValue when absent.
func (ss *SessionStore) Get(key string) (string, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	v, ok := ss.values[key]
	if !ok || v == "" {
		return "", ErrNoValue
	}
	return v, nil
}

// Set stores the value in memory.
func (ss *SessionStore) Set(key, value string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ss.values[key] = value
	return nil
}

// Delete removes the value.
func (ss *SessionStore) Delete(key string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	delete(ss.values, key)
	return nil
}
