// Package file stores services, history and notification config as files
// under a data directory.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/repo"
)

var _ repo.Store = (*Store)(nil)

const (
	servicesName = "services.json"
	historyDir   = "history"
	notifyName   = "notifications.json"
)

type Store struct {
	dir      string
	services string
	mu       sync.Mutex
}

// New prepares dir. servicesFile overrides DATA_DIR/services.json; a .yaml or
// .yml extension selects YAML.
func New(dir, servicesFile string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("data dir is empty")
	}
	if err := os.MkdirAll(filepath.Join(dir, historyDir), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if servicesFile == "" {
		servicesFile = filepath.Join(dir, servicesName)
	}
	return &Store{dir: dir, services: servicesFile}, nil
}

func (s *Store) Close() error { return nil }

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (s *Store) LoadServices(ctx context.Context) ([]domain.ServiceSpec, error) {
	raw, err := os.ReadFile(s.services)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.ServiceSpec{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read services: %w", err)
	}
	var specs []domain.ServiceSpec
	if isYAML(s.services) {
		err = yaml.Unmarshal(raw, &specs)
	} else if len(strings.TrimSpace(string(raw))) > 0 {
		err = json.Unmarshal(raw, &specs)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(s.services), err)
	}
	if specs == nil {
		specs = []domain.ServiceSpec{}
	}
	return specs, nil
}

func (s *Store) SaveServices(ctx context.Context, specs []domain.ServiceSpec) error {
	if specs == nil {
		specs = []domain.ServiceSpec{}
	}
	var (
		raw []byte
		err error
	)
	if isYAML(s.services) {
		raw, err = yaml.Marshal(specs)
	} else {
		raw, err = json.MarshalIndent(specs, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode services: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.services, raw)
}

// historyPath maps a service name to a file name that is safe on every
// platform. Names that needed rewriting get a hash suffix so two names never
// share a file.
func (s *Store) historyPath(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	if safe != name || strings.HasPrefix(safe, ".") {
		sum := sha256.Sum256([]byte(name))
		safe = strings.TrimLeft(safe, ".") + "-" + hex.EncodeToString(sum[:4])
	}
	return filepath.Join(s.dir, historyDir, safe+".json")
}

func (s *Store) LoadHistory(ctx context.Context, name string) ([]domain.HistoryEntry, error) {
	raw, err := os.ReadFile(s.historyPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", name, err)
	}
	var out []domain.HistoryEntry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", name, err)
	}
	if out == nil {
		out = []domain.HistoryEntry{}
	}
	return out, nil
}

func (s *Store) SaveHistory(ctx context.Context, name string, entries []domain.HistoryEntry) error {
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.historyPath(name), raw)
}

func (s *Store) DeleteHistory(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.historyPath(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete history %s: %w", name, err)
	}
	return nil
}

// HistoryExists reports whether a history file is present for name.
func (s *Store) HistoryExists(name string) bool {
	_, err := os.Stat(s.historyPath(name))
	return err == nil
}

func (s *Store) LoadNotificationConfig(ctx context.Context) (domain.NotificationConfig, error) {
	var cfg domain.NotificationConfig
	raw, err := os.ReadFile(filepath.Join(s.dir, notifyName))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read notification config: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse notification config: %w", err)
	}
	return cfg, nil
}

func (s *Store) SaveNotificationConfig(ctx context.Context, cfg domain.NotificationConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notification config: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(filepath.Join(s.dir, notifyName), raw)
}

// writeAtomic replaces path via a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
