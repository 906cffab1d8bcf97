package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/config"
	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/httpapi"
	apimw "github.com/hamed0406/uptimewatch/internal/httpapi/middleware"
	"github.com/hamed0406/uptimewatch/internal/hub"
	"github.com/hamed0406/uptimewatch/internal/logging"
	"github.com/hamed0406/uptimewatch/internal/monitor"
	"github.com/hamed0406/uptimewatch/internal/notify"
	"github.com/hamed0406/uptimewatch/internal/probe"
	"github.com/hamed0406/uptimewatch/internal/scheduler"
	"github.com/hamed0406/uptimewatch/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("api_exit", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	v, err := newVault(cfg, logger)
	if err != nil {
		return err
	}

	notifyOpts := notify.Options{SMSBaseURL: cfg.SMSAPIBase, Logger: logger}
	mon, err := monitor.New(ctx, monitor.Options{
		Logger:    logger,
		Services:  store,
		Histories: store,
		Configs:   store,
		Vault:     v,
		Retention: cfg.HistoryRetention,
		BuildDispatcher: func(nc domain.NotificationConfig) *notify.Dispatcher {
			return notify.Build(nc, notifyOpts)
		},
	})
	if err != nil {
		return err
	}

	// Probes and the hub outlive the signal so an in-flight cycle can finish
	// instead of recording cancelled probes as failures.
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	live := hub.New(logger, cfg.AllowedOrigins)
	go live.Run(runCtx)

	sched := scheduler.New(logger, mon, probe.NewHTTPChecker(), scheduler.Options{
		Interval:  cfg.CheckInterval,
		DNS:       probe.NewDNSDiagnoser(),
		Publisher: live,
	})
	if err := sched.Start(runCtx); err != nil {
		return err
	}

	api := httpapi.NewServer(logger, mon, sched, live.HandleConnect)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	if !keys.Enabled() {
		logger.Warn("api_keys_disabled", zap.String("hint", "set PUBLIC_API_KEYS and ADMIN_API_KEYS"))
	} else if len(keys.Admin) == 0 {
		logger.Warn("admin_api_disabled", zap.String("hint", "set ADMIN_API_KEYS to enable write routes"))
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api_listen",
			zap.String("addr", cfg.Addr),
			zap.String("storage", cfg.Storage),
			zap.Duration("interval", cfg.CheckInterval))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err = <-serveErr:
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = multierr.Append(err, srv.Shutdown(shutCtx))
	sched.Stop(shutCtx)
	cancelRun()
	logger.Info("shutdown_done")
	return err
}

// newVault picks the key provider. Without VAULT_SECRET the key lives only in
// memory and stored secrets must be re-entered after a restart.
func newVault(cfg config.Config, logger *zap.Logger) (*vault.Vault, error) {
	if cfg.VaultSecret == "" {
		logger.Info("vault_key_ephemeral")
		return vault.New(vault.EphemeralKey{})
	}
	logger.Warn("vault_key_passphrase",
		zap.String("tradeoff", "anyone holding VAULT_SECRET and the data store can decrypt notification secrets"))
	return vault.New(vault.PassphraseKey{Secret: cfg.VaultSecret})
}
