package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/probe"
)

// IsTransition reports whether moving from prev to cur should alert. The
// unknown status of a never checked service differs from both up and down,
// so the first observation after a start always alerts.
func IsTransition(prev, cur domain.Status) bool {
	return prev != cur
}

// Alerter reacts to recorded results: it logs transitions, diagnoses DNS for
// services that went down on a transport error and hands the transition to
// the notification channels.
type Alerter struct {
	Logger   *zap.Logger
	Notifier interface {
		Dispatch(ctx context.Context, r domain.CheckResult, prev domain.Status) error
	}
	DNS *probe.DNSDiagnoser
}

// Observe returns true when r was a transition from prev.
func (a *Alerter) Observe(ctx context.Context, r domain.CheckResult, prev domain.Status) bool {
	if !IsTransition(prev, r.Status) {
		return false
	}
	fields := []zap.Field{
		zap.String("service", r.Name),
		zap.String("url", r.URL),
		zap.String("from", string(prev)),
		zap.String("to", string(r.Status)),
	}
	if r.Status == domain.StatusDown {
		fields = append(fields, zap.String("error", r.Error))
		if r.StatusCode == nil && a.DNS != nil {
			d := a.DNS.Diagnose(ctx, r.URL)
			fields = append(fields,
				zap.String("dns", string(d.Class)),
				zap.Int("dns_ips", len(d.IPs)),
				zap.String("dns_error", d.ResolverError))
		}
		a.Logger.Warn("status_transition", fields...)
	} else {
		a.Logger.Info("status_transition", fields...)
	}

	if err := a.Notifier.Dispatch(ctx, r, prev); err != nil {
		a.Logger.Warn("notify_incomplete", zap.String("service", r.Name), zap.Error(err))
	}
	return true
}
