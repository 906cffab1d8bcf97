// Package redis stores services, history and notification config as JSON
// documents under a key prefix.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/repo"
)

var _ repo.Store = (*Store)(nil)

const DefaultPrefix = "uptimewatch"

type Store struct {
	client *goredis.Client
	prefix string
}

func New(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) servicesKey() string           { return s.prefix + ":services" }
func (s *Store) historyKey(name string) string { return s.prefix + ":history:" + name }
func (s *Store) notifyKey() string             { return s.prefix + ":notifications" }

func (s *Store) Close() error { return s.client.Close() }

// getJSON decodes key into v. It reports false when the key does not exist.
func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) LoadServices(ctx context.Context) ([]domain.ServiceSpec, error) {
	out := []domain.ServiceSpec{}
	if _, err := s.getJSON(ctx, s.servicesKey(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveServices(ctx context.Context, specs []domain.ServiceSpec) error {
	if specs == nil {
		specs = []domain.ServiceSpec{}
	}
	return s.setJSON(ctx, s.servicesKey(), specs)
}

func (s *Store) LoadHistory(ctx context.Context, name string) ([]domain.HistoryEntry, error) {
	out := []domain.HistoryEntry{}
	if _, err := s.getJSON(ctx, s.historyKey(name), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveHistory(ctx context.Context, name string, entries []domain.HistoryEntry) error {
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return s.setJSON(ctx, s.historyKey(name), entries)
}

func (s *Store) DeleteHistory(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, s.historyKey(name)).Err(); err != nil {
		return fmt.Errorf("delete history %s: %w", name, err)
	}
	return nil
}

func (s *Store) LoadNotificationConfig(ctx context.Context) (domain.NotificationConfig, error) {
	var cfg domain.NotificationConfig
	_, err := s.getJSON(ctx, s.notifyKey(), &cfg)
	return cfg, err
}

func (s *Store) SaveNotificationConfig(ctx context.Context, cfg domain.NotificationConfig) error {
	return s.setJSON(ctx, s.notifyKey(), cfg)
}
