package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"burnlink/internal/lifecycle"
)

// Memory is an in-memory ObjectStore for tests and single-process
// development runs. It honors the same claim semantics as Postgres:
// the download counter only advances while quota remains, under a
// single lock per store.
type Memory struct {
	mu      sync.Mutex
	objects map[string]*lifecycle.Object
}

var _ lifecycle.ObjectStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]*lifecycle.Object)}
}

func (m *Memory) CreateObject(_ context.Context, obj *lifecycle.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[obj.ID]; exists {
		return fmt.Errorf("duplicate object id %s", obj.ID)
	}
	cp := *obj
	m.objects[obj.ID] = &cp
	return nil
}

func (m *Memory) GetObject(_ context.Context, id string) (*lifecycle.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, nil
	}
	cp := *obj
	return &cp, nil
}

func (m *Memory) ClaimDownload(_ context.Context, id string) (int, bool, error) {
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

func (m *Memory) DeleteObject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
	return nil
}

func (m *Memory) ListObjects(_ context.Context) ([]*lifecycle.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*lifecycle.Object, 0, len(m.objects))
	for _, obj := range m.objects {
		cp := *obj
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) ListStoragePaths(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for _, obj := range m.objects {
		out = append(out, obj.StoragePath)
	}
	return out, nil
}

// MemoryBlob is the in-memory BlobStore counterpart to Memory.
type MemoryBlob struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	written map[string]time.Time
}

var _ lifecycle.BlobStore = (*MemoryBlob)(nil)

func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{
		blobs:   make(map[string][]byte),
		written: make(map[string]time.Time),
	}
}

func (m *MemoryBlob) Write(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = append([]byte(nil), data...)
	m.written[path] = time.Now().UTC()
	return nil
}

func (m *MemoryBlob) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[path]
	if !ok {
		return nil, fmt.Errorf("no blob at %s", path)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBlob) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	delete(m.written, path)
	return nil
}

func (m *MemoryBlob) List(_ context.Context) ([]lifecycle.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]lifecycle.BlobInfo, 0, len(m.blobs))
	for p := range m.blobs {
		out = append(out, lifecycle.BlobInfo{Path: p, ModTime: m.written[p]})
	}
	return out, nil
}
