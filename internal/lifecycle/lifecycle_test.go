package lifecycle

import (
	"context"
	"sync"
	"time"

	"burnlink/internal/cryptox"
)

// memStore is an in-memory ObjectStore with the same per-record claim
// semantics the Postgres implementation provides.
type memStore struct {
	mu      sync.Mutex
	objects map[string]*Object
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string]*Object)}
}

func (m *memStore) CreateObject(_ context.Context, obj *Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *obj
	m.objects[obj.ID] = &cp
	return nil
}

func (m *memStore) GetObject(_ context.Context, id string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, nil
	}
	cp := *obj
	return &cp, nil
}

func (m *memStore) ClaimDownload(_ context.Context, id string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[id]
	if !ok {
		return 0, false, nil
	}
	if obj.MaxDownloads > 0 && obj.Downloads >= obj.MaxDownloads {
		return 0, false, nil
	}
	obj.Downloads++
	return obj.Downloads, true, nil
}

func (m *memStore) DeleteObject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
	return nil
}

func (m *memStore) ListObjects(_ context.Context) ([]*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Object, 0, len(m.objects))
	for _, obj := range m.objects {
		cp := *obj
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) ListStoragePaths(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for _, obj := range m.objects {
		out = append(out, obj.StoragePath)
	}
	return out, nil
}

// memBlob is an in-memory BlobStore. Its clock is shared with the test
// env so blob ages track the service's notion of now.
type memBlob struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	written map[string]time.Time
	now     func() time.Time
}

func newMemBlob() *memBlob {
	return &memBlob{
		blobs:   make(map[string][]byte),
		written: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *memBlob) Write(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = append([]byte(nil), data...)
	m.written[path] = m.now()
	return nil
}

func (m *memBlob) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memBlob) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	delete(m.written, path)
	return nil
}

func (m *memBlob) List(_ context.Context) ([]BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BlobInfo, 0, len(m.blobs))
	for p := range m.blobs {
		out = append(out, BlobInfo{Path: p, ModTime: m.written[p]})
	}
	return out, nil
}

func (m *memBlob) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// testEnv bundles a service over in-memory collaborators with a
// controllable clock.
type testEnv struct {
	store   *memStore
	blobs   *memBlob
	service *Service
	clock   time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store: newMemStore(),
		blobs: newMemBlob(),
		clock: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	env.blobs.now = func() time.Time { return env.clock }
	env.service = NewService(env.store, env.blobs, cryptox.New("test-master-key"))
	env.service.now = func() time.Time { return env.clock }
	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.clock = env.clock.Add(d)
}
