package repo

import (
	"context"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// Ports (interfaces) implemented by every storage backend.

// ServiceStore persists the ordered service list as a whole.
type ServiceStore interface {
	LoadServices(ctx context.Context) ([]domain.ServiceSpec, error)
	SaveServices(ctx context.Context, specs []domain.ServiceSpec) error
}

// HistoryStore keeps one history sequence per service name. SaveHistory
// replaces the stored sequence; loading an unknown name yields an empty one.
type HistoryStore interface {
	LoadHistory(ctx context.Context, name string) ([]domain.HistoryEntry, error)
	SaveHistory(ctx context.Context, name string, entries []domain.HistoryEntry) error
	DeleteHistory(ctx context.Context, name string) error
}

// ConfigStore holds the notification config with secrets already sealed.
type ConfigStore interface {
	LoadNotificationConfig(ctx context.Context) (domain.NotificationConfig, error)
	SaveNotificationConfig(ctx context.Context, cfg domain.NotificationConfig) error
}

type Store interface {
	ServiceStore
	HistoryStore
	ConfigStore
	Close() error
}
