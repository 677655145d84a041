package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/vault"
)

// FileBackend stores each vault collection as <dir>/<collection>.json.
type FileBackend struct {
	dir string

	mu   sync.Mutex
	data map[vault.Collection]map[string]domain.Bytes
}

var _ vault.Backend = (*FileBackend)(nil)

// NewFileBackend creates dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, errors.Wrap(err, "create vault dir")
	}
	return &FileBackend{dir: dir, data: make(map[vault.Collection]map[string]domain.Bytes)}, nil
}

func (b *FileBackend) path(c vault.Collection) string {
	return filepath.Join(b.dir, string(c)+".json")
}

// Load reads every collection file.
func (b *FileBackend) Load(ctx context.Context) (map[vault.Collection]map[string][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[vault.Collection]map[string][]byte)
	for _, c := range vault.Collections() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := make(map[string]domain.Bytes)
		if _, err := readJSON(b.path(c), &m); err != nil {
			return nil, errors.Wrapf(err, "read %s", c)
		}
		b.data[c] = m
		kv := make(map[string][]byte, len(m))
		for k, v := range m {
			kv[k] = v.Clone()
		}
		out[c] = kv
	}
	return out, nil
}

// Put stores value and rewrites the collection file.
func (b *FileBackend) Put(_ context.Context, c vault.Collection, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.collection(c)
	m[key] = domain.Bytes(value).Clone()
	return errors.Wrapf(writeJSON(b.path(c), m), "write %s", c)
}

// Delete removes key and rewrites the collection file.
func (b *FileBackend) Delete(_ context.Context, c vault.Collection, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.collection(c)
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return errors.Wrapf(writeJSON(b.path(c), m), "write %s", c)
}

// Close is a no-op; every write is already on disk.
func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) collection(c vault.Collection) map[string]domain.Bytes {
	m, ok := b.data[c]
	if !ok {
		m = make(map[string]domain.Bytes)
		_, _ = readJSON(b.path(c), &m)
		b.data[c] = m
	}
	return m
}
