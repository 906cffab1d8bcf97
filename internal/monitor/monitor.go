// Package monitor owns the monitoring state of one process: the service list,
// the current status per service, the retained history and the notification
// channels. Every mutation goes through a single lock so administrative
// operations never interleave with a cycle's updates.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/notify"
	"github.com/hamed0406/uptimewatch/internal/repo"
	"github.com/hamed0406/uptimewatch/internal/vault"
)

// DefaultRetention is the trailing history window kept on every save.
const DefaultRetention = 90 * 24 * time.Hour

type Options struct {
	Logger    *zap.Logger
	Services  repo.ServiceStore
	Histories repo.HistoryStore
	Configs   repo.ConfigStore
	Vault     *vault.Vault
	Retention time.Duration
	Now       func() time.Time
	// BuildDispatcher turns a decrypted config into channel sinks. It runs at
	// startup and after every config update.
	BuildDispatcher func(domain.NotificationConfig) *notify.Dispatcher
}

type Monitor struct {
	log       *zap.Logger
	services  repo.ServiceStore
	histories repo.HistoryStore
	configs   repo.ConfigStore
	vault     *vault.Vault
	retention time.Duration
	now       func() time.Time
	build     func(domain.NotificationConfig) *notify.Dispatcher

	mu         sync.RWMutex
	specs      []domain.ServiceSpec
	current    map[string]domain.CheckResult
	history    map[string][]domain.HistoryEntry
	notifyCfg  domain.NotificationConfig
	dispatcher *notify.Dispatcher
}

// New loads the service list, each service's history and the notification
// config. Current statuses start empty.
func New(ctx context.Context, opts Options) (*Monitor, error) {
	if opts.Services == nil || opts.Histories == nil || opts.Configs == nil {
		return nil, fmt.Errorf("monitor: stores are required")
	}
	m := &Monitor{
		log:       opts.Logger,
		services:  opts.Services,
		histories: opts.Histories,
		configs:   opts.Configs,
		vault:     opts.Vault,
		retention: opts.Retention,
		now:       opts.Now,
		build:     opts.BuildDispatcher,
		current:   make(map[string]domain.CheckResult),
		history:   make(map[string][]domain.HistoryEntry),
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.retention <= 0 {
		m.retention = DefaultRetention
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.vault == nil {
		v, err := vault.New(vault.EphemeralKey{})
		if err != nil {
			return nil, err
		}
		m.vault = v
	}
	if m.build == nil {
		log := m.log
		m.build = func(cfg domain.NotificationConfig) *notify.Dispatcher {
			return notify.Build(cfg, notify.Options{Logger: log})
		}
	}

	specs, err := m.services.LoadServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	seen := make(map[string]bool, len(specs))
	for _, sp := range specs {
		sp = sp.WithDefaults()
		if seen[sp.Name] {
			m.log.Warn("service_duplicate_skipped", zap.String("service", sp.Name))
			continue
		}
		seen[sp.Name] = true
		m.specs = append(m.specs, sp)

		h, err := m.histories.LoadHistory(ctx, sp.Name)
		if err != nil {
			m.log.Warn("history_load_failed", zap.String("service", sp.Name), zap.Error(err))
			h = nil
		}
		m.history[sp.Name] = h
	}

	stored, err := m.configs.LoadNotificationConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load notification config: %w", err)
	}
	m.notifyCfg = m.vault.Open(stored)
	m.dispatcher = m.build(m.notifyCfg)

	m.log.Info("monitor_loaded",
		zap.Int("services", len(m.specs)),
		zap.Int("channels", len(m.dispatcher.Channels())))
	return m, nil
}

// Services returns a copy of the current service list in order.
func (m *Monitor) Services() []domain.ServiceSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ServiceSpec(nil), m.specs...)
}

func (m *Monitor) indexOf(name string) int {
	for i, sp := range m.specs {
		if sp.Name == name {
			return i
		}
	}
	return -1
}

// Record stores r as the service's current status, appends it to history and
// persists the history trimmed to the retention window. It returns the status
// that r replaces, StatusUnknown for a first observation. For a service that
// no longer exists, or was re-added with another URL, Record does nothing and
// reports ok=false.
func (m *Monitor) Record(ctx context.Context, r domain.CheckResult) (prev domain.Status, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(r.Name)
	if i < 0 || m.specs[i].URL != r.URL {
		return domain.StatusUnknown, false, nil
	}
	prev = domain.StatusUnknown
	if cur, found := m.current[r.Name]; found {
		prev = cur.Status
	}

	hist := append(m.history[r.Name], r.History())
	trimmed := domain.Retain(hist, m.now(), m.retention)
	if serr := m.histories.SaveHistory(ctx, r.Name, trimmed); serr != nil {
		err = fmt.Errorf("save history %s: %w", r.Name, serr)
	}
	m.history[r.Name] = trimmed
	m.current[r.Name] = r
	return prev, true, err
}

// Dispatch hands a transition to the notification channels. Channel failures
// are logged by the dispatcher and returned aggregated.
func (m *Monitor) Dispatch(ctx context.Context, r domain.CheckResult, prev domain.Status) error {
	m.mu.RLock()
	d := m.dispatcher
	m.mu.RUnlock()
	return d.Dispatch(ctx, r, prev)
}

// AddService validates spec and appends it to the persisted list.
func (m *Monitor) AddService(ctx context.Context, spec domain.ServiceSpec) (domain.ServiceSpec, error) {
	spec = spec.WithDefaults()
	if err := spec.Validate(); err != nil {
		return spec, fmt.Errorf("%w: %v", ErrInvalidService, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(spec.Name) >= 0 {
		return spec, fmt.Errorf("%w: %s", ErrDuplicateService, spec.Name)
	}
	next := append(append([]domain.ServiceSpec(nil), m.specs...), spec)
	if err := m.services.SaveServices(ctx, next); err != nil {
		return spec, fmt.Errorf("save services: %w", err)
	}
	m.specs = next
	m.history[spec.Name] = nil
	m.log.Info("service_added", zap.String("service", spec.Name), zap.String("url", spec.URL))
	return spec, nil
}

// RemoveService drops the service, its current status and its history, both
// in memory and in durable storage.
func (m *Monitor) RemoveService(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	next := append(append([]domain.ServiceSpec(nil), m.specs[:i]...), m.specs[i+1:]...)
	if err := m.services.SaveServices(ctx, next); err != nil {
		return fmt.Errorf("save services: %w", err)
	}
	m.specs = next
	delete(m.current, name)
	delete(m.history, name)
	if err := m.histories.DeleteHistory(ctx, name); err != nil {
		return fmt.Errorf("delete history %s: %w", name, err)
	}
	m.log.Info("service_removed", zap.String("service", name))
	return nil
}
