package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/notify"
	"github.com/hamed0406/uptimewatch/internal/repo/memory"
	"github.com/hamed0406/uptimewatch/internal/vault"
)

// --- fakes ---

type recordingSink struct {
	ch  domain.Channel
	err error

	mu     sync.Mutex
	alerts []notify.Alert
}

func (s *recordingSink) Channel() domain.Channel { return s.ch }

func (s *recordingSink) Send(_ context.Context, a notify.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return s.err
}

func (s *recordingSink) sent() []notify.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Alert(nil), s.alerts...)
}

type failingHistories struct{ *memory.Store }

func (f failingHistories) SaveHistory(context.Context, string, []domain.HistoryEntry) error {
	return errors.New("disk full")
}

type fixture struct {
	m     *Monitor
	store *memory.Store
	sink  *recordingSink
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		sink:  &recordingSink{ch: domain.ChannelTeams},
		now:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	m, err := New(context.Background(), Options{
		Logger:    zap.NewNop(),
		Services:  f.store,
		Histories: f.store,
		Configs:   f.store,
		Now:       func() time.Time { return f.now },
		BuildDispatcher: func(cfg domain.NotificationConfig) *notify.Dispatcher {
			return notify.NewDispatcher(zap.NewNop(), f.sink)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.m = m
	return f
}

func (f *fixture) add(t *testing.T, name string) {
	t.Helper()
	if _, err := f.m.AddService(context.Background(), domain.ServiceSpec{Name: name, URL: "https://" + name + ".example.com"}); err != nil {
		t.Fatalf("AddService(%s): %v", name, err)
	}
}

func checkResult(name string, status domain.Status, at time.Time) domain.CheckResult {
	r := domain.CheckResult{Name: name, URL: "https://" + name + ".example.com", Status: status, ObservedAt: at}
	if status == domain.StatusUp {
		code := 200
		r.StatusCode = &code
	}
	return r
}

// --- tests ---

func TestRecord_FirstObservationReportsUnknown(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a")

	prev, ok, err := f.m.Record(context.Background(), checkResult("a", domain.StatusUp, f.now))
	if err != nil || !ok {
		t.Fatalf("Record: ok=%v err=%v", ok, err)
	}
	if prev != domain.StatusUnknown {
		t.Fatalf("want unknown, got %s", prev)
	}
	prev, _, _ = f.m.Record(context.Background(), checkResult("a", domain.StatusDown, f.now.Add(time.Minute)))
	if prev != domain.StatusUp {
		t.Fatalf("want previous up, got %s", prev)
	}
}

func TestRecord_UpThenDownDispatchesOnce(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a")
	ctx := context.Background()

	steps := []domain.Status{domain.StatusUp, domain.StatusUp, domain.StatusDown, domain.StatusDown}
	for i, st := range steps {
		r := checkResult("a", st, f.now.Add(time.Duration(i)*30*time.Second))
		prev, _, _ := f.m.Record(ctx, r)
		_ = f.m.Dispatch(ctx, r, prev)
	}
	got := f.sink.sent()
	// unknown->up on first check, then up->down
	if len(got) != 2 {
		t.Fatalf("want 2 alerts, got %d", len(got))
	}
	if got[1].Previous != domain.StatusUp || got[1].Status != domain.StatusDown {
		t.Fatalf("transition alert not as expected: %+v", got[1])
	}
}

func TestRecord_ReaddedWithNewURLIgnoresStaleResult(t *testing.T) {
	f := newFixture(t)
	f.add(t, "b")
	ctx := context.Background()
	if err := f.m.RemoveService(ctx, "b"); err != nil {
		t.Fatalf("RemoveService: %v", err)
	}
	if _, err := f.m.AddService(ctx, domain.ServiceSpec{Name: "b", URL: "https://b2.example.com"}); err != nil {
		t.Fatalf("AddService: %v", err)
	}

	// result of a probe started against the old URL
	_, ok, err := f.m.Record(ctx, checkResult("b", domain.StatusDown, f.now))
	if ok || err != nil {
		t.Fatalf("stale result must be ignored: ok=%v err=%v", ok, err)
	}
	if f.store.HasHistory("b") {
		t.Fatal("stale result reached the new service's history")
	}

	fresh := checkResult("b", domain.StatusUp, f.now)
	fresh.URL = "https://b2.example.com"
	if _, ok, err := f.m.Record(ctx, fresh); !ok || err != nil {
		t.Fatalf("current result must be recorded: ok=%v err=%v", ok, err)
	}
}

func TestRecord_RemovedServiceIsNotResurrected(t *testing.T) {
	f := newFixture(t)
	f.add(t, "b")
	ctx := context.Background()
	if _, _, err := f.m.Record(ctx, checkResult("b", domain.StatusUp, f.now)); err != nil {
		t.Fatal(err)
	}
	if !f.store.HasHistory("b") {
		t.Fatal("history should be persisted")
	}

	if err := f.m.RemoveService(ctx, "b"); err != nil {
		t.Fatalf("RemoveService: %v", err)
	}
	// in-flight result arriving after removal
	_, ok, err := f.m.Record(ctx, checkResult("b", domain.StatusDown, f.now.Add(time.Second)))
	if ok || err != nil {
		t.Fatalf("late result must be ignored: ok=%v err=%v", ok, err)
	}
	if f.store.HasHistory("b") {
		t.Fatal("history for removed service was resurrected")
	}
	if _, err := f.m.History("b"); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("want ErrServiceNotFound, got %v", err)
	}
}

func TestRecord_TrimsHistoryToRetention(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a")
	ctx := context.Background()

	old := f.now.Add(-91 * 24 * time.Hour)
	for i := 0; i < 5; i++ {
		f.now = old.Add(time.Duration(i) * time.Hour)
		_, _, _ = f.m.Record(ctx, checkResult("a", domain.StatusDown, f.now))
	}
	f.now = old.Add(91 * 24 * time.Hour)
	_, _, _ = f.m.Record(ctx, checkResult("a", domain.StatusUp, f.now))

	stored, _ := f.store.LoadHistory(ctx, "a")
	if len(stored) != 1 || stored[0].Status != domain.StatusUp {
		t.Fatalf("stored history not trimmed: %+v", stored)
	}
	h, _ := f.m.History("a")
	if len(h.Entries) != 1 || h.Uptime != 100 {
		t.Fatalf("in-memory history not trimmed: %+v", h)
	}
}

func TestRecord_PersistenceFailureStillUpdatesStatus(t *testing.T) {
	store := memory.New()
	m, err := New(context.Background(), Options{
		Services:  store,
		Histories: failingHistories{store},
		Configs:   store,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddService(context.Background(), domain.ServiceSpec{Name: "a", URL: "https://a.example.com"}); err != nil {
		t.Fatal(err)
	}
	_, ok, err := m.Record(context.Background(), checkResult("a", domain.StatusUp, time.Now()))
	if !ok || err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("want persistence error, got ok=%v err=%v", ok, err)
	}
	if st := m.Statuses(); st[0].Current == nil || st[0].Current.Status != domain.StatusUp {
		t.Fatalf("current status should be set: %+v", st)
	}
}

func TestAddService_ValidationAndDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	spec, err := f.m.AddService(ctx, domain.ServiceSpec{Name: "a", URL: "https://a.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if spec.TimeoutMs != 5000 || spec.ExpectedStatusCode != 200 {
		t.Fatalf("defaults not applied: %+v", spec)
	}
	if _, err := f.m.AddService(ctx, domain.ServiceSpec{Name: "a", URL: "https://other.example.com"}); !errors.Is(err, ErrDuplicateService) {
		t.Fatalf("want ErrDuplicateService, got %v", err)
	}
	if _, err := f.m.AddService(ctx, domain.ServiceSpec{Name: "b", URL: "ftp://x"}); !errors.Is(err, ErrInvalidService) {
		t.Fatalf("want ErrInvalidService, got %v", err)
	}
	if _, err := f.m.AddService(ctx, domain.ServiceSpec{URL: "https://x.example.com"}); !errors.Is(err, ErrInvalidService) {
		t.Fatalf("want ErrInvalidService for missing name, got %v", err)
	}
	saved, _ := f.store.LoadServices(ctx)
	if len(saved) != 1 {
		t.Fatalf("want 1 persisted service, got %d", len(saved))
	}
	if err := f.m.RemoveService(ctx, "nope"); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("want ErrServiceNotFound, got %v", err)
	}
}

func TestStatuses_OrderAndUptime(t *testing.T) {
	f := newFixture(t)
	f.add(t, "z")
	f.add(t, "a")
	ctx := context.Background()
	for i, st := range []domain.Status{domain.StatusUp, domain.StatusUp, domain.StatusDown, domain.StatusUp} {
		_, _, _ = f.m.Record(ctx, checkResult("z", st, f.now.Add(time.Duration(i)*time.Second)))
	}
	got := f.m.Statuses()
	if len(got) != 2 || got[0].Spec.Name != "z" || got[1].Spec.Name != "a" {
		t.Fatalf("order not kept: %+v", got)
	}
	if domain.FormatUptime(got[0].Uptime) != "75.00" {
		t.Fatalf("uptime = %v", got[0].Uptime)
	}
	if got[1].Current != nil || got[1].Uptime != 100 {
		t.Fatalf("unchecked service: %+v", got[1])
	}
}

func TestNew_LoadsStoredState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	v, err := vault.New(vault.PassphraseKey{Secret: "s3cret"})
	if err != nil {
		t.Fatal(err)
	}
	_ = store.SaveServices(ctx, []domain.ServiceSpec{{Name: "a", URL: "https://a.example.com"}})
	_ = store.SaveHistory(ctx, "a", []domain.HistoryEntry{{Timestamp: time.Now(), Status: domain.StatusDown}})
	sealed, _ := v.Seal(domain.NotificationConfig{SMS: domain.SMSConfig{Enabled: true, AccountSID: "AC1", AuthToken: "tok", From: "+1", To: "+2"}})
	_ = store.SaveNotificationConfig(ctx, sealed)

	var built domain.NotificationConfig
	m, err := New(ctx, Options{
		Services: store, Histories: store, Configs: store, Vault: v,
		BuildDispatcher: func(cfg domain.NotificationConfig) *notify.Dispatcher {
			built = cfg
			return notify.NewDispatcher(nil)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if built.SMS.AuthToken != "tok" || built.SMS.AccountSID != "AC1" {
		t.Fatalf("secrets not decrypted for sinks: %+v", built.SMS)
	}
	st := m.Statuses()
	if len(st) != 1 || st[0].Spec.TimeoutMs != 5000 || st[0].Current != nil || st[0].Uptime != 0 {
		t.Fatalf("loaded state not as expected: %+v", st)
	}
}

func TestNotificationConfig_MaskSealAndKeep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := domain.NotificationConfig{
		Email: domain.EmailConfig{Enabled: true, SMTP: domain.SMTPConfig{Host: "smtp.example.com", Auth: domain.SMTPAuth{User: "u", Pass: "pw"}}, From: "a@x", To: "b@x"},
	}
	masked, err := f.m.UpdateNotificationConfig(ctx, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if masked.Email.SMTP.Auth.Pass != domain.SecretMask {
		t.Fatalf("response must be masked: %+v", masked.Email.SMTP.Auth)
	}
	stored, _ := f.store.LoadNotificationConfig(ctx)
	if stored.Email.SMTP.Auth.Pass == "pw" || !strings.Contains(stored.Email.SMTP.Auth.Pass, ":") {
		t.Fatalf("stored secret must be ciphertext: %q", stored.Email.SMTP.Auth.Pass)
	}

	// a client echoing the masked value back keeps the secret
	next := f.m.NotificationConfig()
	next.Email.To = "c@x"
	if _, err := f.m.UpdateNotificationConfig(ctx, next); err != nil {
		t.Fatal(err)
	}
	f.m.mu.RLock()
	pass, to := f.m.notifyCfg.Email.SMTP.Auth.Pass, f.m.notifyCfg.Email.To
	f.m.mu.RUnlock()
	if pass != "pw" || to != "c@x" {
		t.Fatalf("secret lost or update ignored: pass=%q to=%q", pass, to)
	}
}

func TestTestChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.m.TestChannel(ctx, "pager"); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("want ErrUnknownChannel, got %v", err)
	}
	if err := f.m.TestChannel(ctx, "teams"); !errors.Is(err, ErrChannelNotConfigured) {
		t.Fatalf("want ErrChannelNotConfigured, got %v", err)
	}
	_, err := f.m.UpdateNotificationConfig(ctx, domain.NotificationConfig{
		Teams: domain.TeamsConfig{Enabled: true, WebhookURL: "https://hooks.example.com/x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.m.TestChannel(ctx, "Teams"); err != nil {
		t.Fatalf("TestChannel: %v", err)
	}
	sent := f.sink.sent()
	if len(sent) != 1 || sent[0].Service != notify.TestServiceName {
		t.Fatalf("synthetic alert not sent: %+v", sent)
	}
}
