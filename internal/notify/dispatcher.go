package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

// ErrNoSink is returned by Test for a channel that is disabled or incomplete.
var ErrNoSink = errors.New("channel not configured")

// Dispatcher fans an alert out to its sinks in channel order. A failing sink
// never stops the remaining ones.
type Dispatcher struct {
	log   *zap.Logger
	sinks []Sink
	Now   func() time.Time
}

func NewDispatcher(log *zap.Logger, sinks ...Sink) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{log: log, Now: time.Now}
	for _, ch := range domain.Channels {
		for _, s := range sinks {
			if s != nil && s.Channel() == ch {
				d.sinks = append(d.sinks, s)
			}
		}
	}
	return d
}

type Options struct {
	HTTPClient *http.Client
	SMSBaseURL string
	Logger     *zap.Logger
}

// Build constructs one sink for every channel that is enabled and complete.
func Build(cfg domain.NotificationConfig, opts Options) *Dispatcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	var sinks []Sink
	if cfg.Ready(domain.ChannelEmail) {
		sinks = append(sinks, NewMail(cfg.Email))
	}
	if cfg.Ready(domain.ChannelTeams) {
		sinks = append(sinks, NewTeams(cfg.Teams, client))
	}
	if cfg.Ready(domain.ChannelSMS) {
		sinks = append(sinks, NewSMS(cfg.SMS, opts.SMSBaseURL, client))
	}
	if cfg.Ready(domain.ChannelIPhone) {
		sinks = append(sinks, NewDevice(cfg.IPhone, client))
	}
	return NewDispatcher(opts.Logger, sinks...)
}

// Channels returns the channels that have a sink, in dispatch order.
func (d *Dispatcher) Channels() []domain.Channel {
	out := make([]domain.Channel, 0, len(d.sinks))
	for _, s := range d.sinks {
		out = append(out, s.Channel())
	}
	return out
}

// Dispatch sends r to every sink when its status differs from prev. The
// returned error aggregates the channels that failed.
func (d *Dispatcher) Dispatch(ctx context.Context, r domain.CheckResult, prev domain.Status) error {
	if d == nil || prev == r.Status {
		return nil
	}
	return d.send(ctx, d.sinks, NewAlert(r, prev))
}

// Test sends the synthetic alert through one channel.
func (d *Dispatcher) Test(ctx context.Context, ch domain.Channel) error {
	if d != nil {
		for _, s := range d.sinks {
			if s.Channel() == ch {
				return d.send(ctx, []Sink{s}, SyntheticAlert(d.Now()))
			}
		}
	}
	return fmt.Errorf("%s: %w", ch, ErrNoSink)
}

func (d *Dispatcher) send(ctx context.Context, sinks []Sink, a Alert) (errs error) {
	for _, s := range sinks {
		if err := d.sendOne(ctx, s, a); err != nil {
			d.log.Warn("notify_channel_failed",
				zap.String("channel", string(s.Channel())),
				zap.String("service", a.Service),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Channel(), err))
			continue
		}
		d.log.Info("notify_channel_sent",
			zap.String("channel", string(s.Channel())),
			zap.String("service", a.Service),
			zap.String("status", string(a.Status)))
	}
	return errs
}

func (d *Dispatcher) sendOne(ctx context.Context, s Sink, a Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Send(ctx, a)
}
