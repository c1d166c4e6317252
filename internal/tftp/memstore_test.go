package tftp

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/wjemai/tftpd/pkg/store"
	"github.com/wjemai/tftpd/pkg/utils"
)

// memStore is an in-memory FileStore used to drive the engine in tests
// without touching the filesystem.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (m *memStore) put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[name] = data
}

func (m *memStore) get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.files[name]

	return b, ok
}

func (m *memStore) Exists(path string) bool {
	_, ok := m.get(path)

	return ok
}

func (m *memStore) OpenRead(path string) (io.ReadCloser, error) {
	data, ok := m.get(path)
	if !ok {
		return nil, fmt.Errorf("memstore: %s: %w", path, utils.ErrUnknownPeer)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

type memWriteCloser struct {
	buf   bytes.Buffer
	name  string
	store *memStore
}

func (w *memWriteCloser) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Sync commits the bytes written so far to the backing map, making a
// mid-transfer flush (spec.md §4.5 step 3) observable to a concurrent
// reader of the store, same as Close's final commit.
func (w *memWriteCloser) Sync() error {
	w.store.put(w.name, append([]byte(nil), w.buf.Bytes()...))

	return nil
}

func (w *memWriteCloser) Close() error {
	return w.Sync()
}

func (m *memStore) OpenCreateWrite(path string) (store.WriteHandle, error) {
	if m.Exists(path) {
		return nil, fmt.Errorf("memstore: %s already exists", path)
	}

	return &memWriteCloser{name: path, store: m}, nil
}
