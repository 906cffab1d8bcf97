package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// Store keeps everything in process memory. Nothing survives a restart.
type Store struct {
	mu       sync.RWMutex
	services []domain.ServiceSpec
	history  map[string][]domain.HistoryEntry
	notify   domain.NotificationConfig
}

func New() *Store {
	return &Store{history: make(map[string][]domain.HistoryEntry)}
}

func (m *Store) LoadServices(ctx context.Context) ([]domain.ServiceSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ServiceSpec(nil), m.services...), nil
}

func (m *Store) SaveServices(ctx context.Context, specs []domain.ServiceSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append([]domain.ServiceSpec(nil), specs...)
	return nil
}

func (m *Store) LoadHistory(ctx context.Context, name string) ([]domain.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.HistoryEntry(nil), m.history[name]...), nil
}

func (m *Store) SaveHistory(ctx context.Context, name string, entries []domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[name] = append([]domain.HistoryEntry(nil), entries...)
	return nil
}

func (m *Store) DeleteHistory(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, name)
	return nil
}

// HasHistory reports whether a history sequence is stored for name.
func (m *Store) HasHistory(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.history[name]
	return ok
}

func (m *Store) LoadNotificationConfig(ctx context.Context) (domain.NotificationConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notify, nil
}

func (m *Store) SaveNotificationConfig(ctx context.Context, cfg domain.NotificationConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = cfg
	return nil
}

func (m *Store) Close() error { return nil }
