package monitor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/notify"
)

// ServiceStatus is one row of the status listing. Current is nil until the
// service has been checked once.
type ServiceStatus struct {
	Spec    domain.ServiceSpec
	Current *domain.CheckResult
	Uptime  float64
}

// Statuses lists every service in order with its current status and uptime.
func (m *Monitor) Statuses() []ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ServiceStatus, 0, len(m.specs))
	for _, sp := range m.specs {
		st := ServiceStatus{Spec: sp, Uptime: domain.Uptime(m.history[sp.Name])}
		if cur, ok := m.current[sp.Name]; ok {
			c := cur
			st.Current = &c
		}
		out = append(out, st)
	}
	return out
}

type ServiceHistory struct {
	Name    string
	Entries []domain.HistoryEntry
	Uptime  float64
}

func (m *Monitor) History(name string) (ServiceHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.indexOf(name) < 0 {
		return ServiceHistory{}, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	h := append([]domain.HistoryEntry{}, m.history[name]...)
	return ServiceHistory{Name: name, Entries: h, Uptime: domain.Uptime(h)}, nil
}

// NotificationConfig returns the config with secrets masked.
func (m *Monitor) NotificationConfig() domain.NotificationConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notifyCfg.Masked()
}

// UpdateNotificationConfig replaces the whole config. Masked secret fields
// keep their stored value. Secrets are sealed before they are persisted and
// the channel sinks are rebuilt from the new config.
func (m *Monitor) UpdateNotificationConfig(ctx context.Context, cfg domain.NotificationConfig) (domain.NotificationConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg = cfg.KeepSecrets(m.notifyCfg)
	sealed, err := m.vault.Seal(cfg)
	if err != nil {
		return domain.NotificationConfig{}, err
	}
	if err := m.configs.SaveNotificationConfig(ctx, sealed); err != nil {
		return domain.NotificationConfig{}, fmt.Errorf("save notification config: %w", err)
	}
	m.notifyCfg = cfg
	m.dispatcher = m.build(cfg)
	m.log.Info("notification_config_updated", zap.Int("channels", len(m.dispatcher.Channels())))
	return cfg.Masked(), nil
}

// TestChannel sends the synthetic alert through one channel.
func (m *Monitor) TestChannel(ctx context.Context, channel string) error {
	ch, ok := domain.ParseChannel(channel)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	m.mu.RLock()
	ready := m.notifyCfg.Ready(ch)
	d := m.dispatcher
	m.mu.RUnlock()
	if !ready {
		return fmt.Errorf("%w: %s", ErrChannelNotConfigured, ch)
	}
	err := d.Test(ctx, ch)
	if errors.Is(err, notify.ErrNoSink) {
		return fmt.Errorf("%w: %s", ErrChannelNotConfigured, ch)
	}
	return err
}
