package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/monitor"
	"github.com/hamed0406/uptimewatch/internal/probe"
)

const DefaultInterval = 30 * time.Second

// Publisher receives every recorded result, e.g. a websocket hub.
type Publisher interface {
	Publish(r domain.CheckResult)
}

type Options struct {
	Interval  time.Duration
	DNS       *probe.DNSDiagnoser
	Publisher Publisher
	// IDs generates cycle ids; nil uses uuid.DefaultGenerator.
	IDs uuid.Generator
}

// Scheduler runs check cycles: every service is probed concurrently, then
// results are recorded and alerted one at a time. Only one cycle runs at a
// time; a tick that fires during a cycle is skipped.
type Scheduler struct {
	log      *zap.Logger
	mon      *monitor.Monitor
	checker  probe.Checker
	alerter  *Alerter
	pub      Publisher
	ids      uuid.Generator
	interval time.Duration

	cycleMu sync.Mutex
	cron    *cron.Cron
	base    context.Context
	wg      sync.WaitGroup
}

func New(logger *zap.Logger, mon *monitor.Monitor, checker probe.Checker, opts Options) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.IDs == nil {
		opts.IDs = uuid.DefaultGenerator
	}
	return &Scheduler{
		log:      logger,
		mon:      mon,
		checker:  checker,
		alerter:  &Alerter{Logger: logger, Notifier: mon, DNS: opts.DNS},
		pub:      opts.Publisher,
		ids:      opts.IDs,
		interval: opts.Interval,
		base:     context.Background(),
	}
}

// Start runs one cycle right away and then one every interval. Probes use
// ctx; cancelling it does not stop the schedule, Stop does.
func (s *Scheduler) Start(ctx context.Context) error {
	s.base = ctx
	cl := cronLogger{s: s.log.Sugar()}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.tick); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		cron.NewChain(cron.Recover(cl)).Then(cron.FuncJob(s.tick)).Run()
	}()
	s.log.Info("scheduler_started", zap.Duration("interval", s.interval))
	return nil
}

// Stop prevents new ticks and waits for a running cycle, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler_stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler_stop_timeout", zap.Error(ctx.Err()))
	}
}

func (s *Scheduler) tick() {
	if !s.cycleMu.TryLock() {
		s.log.Warn("cycle_skipped", zap.String("reason", "previous cycle still running"))
		return
	}
	defer s.cycleMu.Unlock()
	if _, err := s.runCycle(s.base, s.mon.Services()); err != nil {
		s.log.Error("cycle_persist_failed", zap.Error(err))
	}
}

// CheckNow runs a full cycle outside the schedule. It waits for a running
// cycle to finish first. Persistence errors are returned after every result
// has been recorded. If ctx ends first, CheckNow returns ctx.Err() and the
// cycle still completes in the background.
func (s *Scheduler) CheckNow(ctx context.Context) ([]domain.CheckResult, error) {
	return s.detached(ctx, func(run context.Context) ([]domain.CheckResult, error) {
		s.cycleMu.Lock()
		defer s.cycleMu.Unlock()
		return s.runCycle(run, s.mon.Services())
	})
}

// AddService registers spec and checks it once.
func (s *Scheduler) AddService(ctx context.Context, spec domain.ServiceSpec) (domain.CheckResult, error) {
	spec, err := s.mon.AddService(ctx, spec)
	if err != nil {
		return domain.CheckResult{}, err
	}
	results, err := s.detached(ctx, func(run context.Context) ([]domain.CheckResult, error) {
		s.cycleMu.Lock()
		defer s.cycleMu.Unlock()
		return s.runCycle(run, []domain.ServiceSpec{spec})
	})
	if len(results) == 0 {
		return domain.CheckResult{}, err
	}
	return results[0], err
}

// detached runs fn on a context that ignores the caller's cancellation. Probes
// are bounded by their own timeouts only; a caller hanging up must not turn
// them into down results.
func (s *Scheduler) detached(ctx context.Context, fn func(context.Context) ([]domain.CheckResult, error)) ([]domain.CheckResult, error) {
	type outcome struct {
		res []domain.CheckResult
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := fn(context.WithoutCancel(ctx))
		ch <- outcome{res, err}
	}()
	select {
	case o := <-ch:
		return o.res, o.err
	case <-ctx.Done():
		s.log.Warn("check_caller_gone", zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

func (s *Scheduler) runCycle(ctx context.Context, specs []domain.ServiceSpec) ([]domain.CheckResult, error) {
	id, err := s.ids.NewV4()
	if err != nil {
		s.log.Warn("cycle_id_failed", zap.Error(err))
		id = uuid.Nil
	}
	log := s.log.With(zap.String("cycle_id", id.String()))
	start := time.Now()

	results := make([]domain.CheckResult, len(specs))
	var wg sync.WaitGroup
	for i, sp := range specs {
		wg.Add(1)
		go func(i int, sp domain.ServiceSpec) {
			defer wg.Done()
			results[i] = s.checker.Check(ctx, sp)
		}(i, sp)
	}
	wg.Wait()

	var errs error
	recorded := make([]domain.CheckResult, 0, len(results))
	down, alerted := 0, 0
	for _, r := range results {
		prev, ok, err := s.mon.Record(ctx, r)
		if !ok {
			log.Debug("result_dropped", zap.String("service", r.Name), zap.String("reason", "service removed"))
			continue
		}
		if err != nil {
			log.Error("history_persist_failed", zap.String("service", r.Name), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
		recorded = append(recorded, r)
		if r.Status == domain.StatusDown {
			down++
		}
		log.Debug("check_result",
			zap.String("service", r.Name),
			zap.String("status", string(r.Status)),
			zap.Int64("response_ms", r.ResponseTimeMs),
			zap.String("error", r.Error))
		if s.pub != nil {
			s.pub.Publish(r)
		}
		if s.alerter.Observe(ctx, r, prev) {
			alerted++
		}
	}

	log.Info("cycle_done",
		zap.Int("services", len(specs)),
		zap.Int("down", down),
		zap.Int("transitions", alerted),
		zap.Duration("took", time.Since(start)))
	return recorded, errs
}
