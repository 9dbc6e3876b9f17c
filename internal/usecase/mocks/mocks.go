package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/iho/ledgercal/internal/domain"
)

// MockSnapshotSource is a mock implementation of SnapshotSource.
type MockSnapshotSource struct {
	mu   sync.Mutex
	snap *domain.Snapshot

	LatestFunc  func(ctx context.Context) (*domain.Snapshot, error)
	RefreshFunc func(ctx context.Context) (*domain.Snapshot, error)

	LatestCalls  int
	RefreshCalls int
}

func NewMockSnapshotSource(snap *domain.Snapshot) *MockSnapshotSource {
	return &MockSnapshotSource{snap: snap}
}

// SetSnapshot swaps the snapshot served by the default behavior.
func (m *MockSnapshotSource) SetSnapshot(snap *domain.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
}

func (m *MockSnapshotSource) Latest(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	m.LatestCalls++
	m.mu.Unlock()
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *MockSnapshotSource) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	m.RefreshCalls++
	m.mu.Unlock()
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

// MockCache is an in-memory mock implementation of Cache.
type MockCache struct {
	mu    sync.RWMutex
	items map[string][]byte

	GetFunc    func(ctx context.Context, key string) ([]byte, bool, error)
	SetFunc    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error

	Hits   int
	Misses int
	Sets   int
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if value, ok := m.items[key]; ok {
		m.Hits++
		return value, true, nil
	}
	m.Misses++
	return nil, false, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sets++
	m.items[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
