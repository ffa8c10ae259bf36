package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/andreivasquez/lumapay-pos/api/controllers"
	"github.com/andreivasquez/lumapay-pos/api/routes"
	"github.com/andreivasquez/lumapay-pos/internal/connectivity"
	"github.com/andreivasquez/lumapay-pos/internal/credentials"
	"github.com/andreivasquez/lumapay-pos/internal/notify"
	"github.com/andreivasquez/lumapay-pos/internal/offline"
	"github.com/andreivasquez/lumapay-pos/internal/refunds"
	"github.com/andreivasquez/lumapay-pos/internal/session"
	"github.com/andreivasquez/lumapay-pos/internal/settings"
	"github.com/andreivasquez/lumapay-pos/internal/transactions"
	"github.com/andreivasquez/lumapay-pos/pkg/config"
	"github.com/andreivasquez/lumapay-pos/pkg/db"
	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	"github.com/andreivasquez/lumapay-pos/pkg/kvstore"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
	"github.com/andreivasquez/lumapay-pos/pkg/metrics"
	"github.com/andreivasquez/lumapay-pos/pkg/migrate"
	"github.com/andreivasquez/lumapay-pos/pkg/payments"
	"github.com/andreivasquez/lumapay-pos/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "pos-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "pos-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	backend, err := payments.NewClient(cfg.Backend, logg)
	if err != nil {
		logg.Error(ctx, "failed to build payment backend client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	posMetrics := metrics.NewPosMetrics(registry)

	store := kvstore.New(dbClient.DB())

	settingsService, err := settings.NewService(store)
	if err != nil {
		logg.Error(ctx, "failed to build settings service", err)
		os.Exit(1)
	}

	probe, err := connectivity.NewProbe(backend, logg, cfg.Poller.ProbeCacheTTL, cfg.Poller.RequestTimeout)
	if err != nil {
		logg.Error(ctx, "failed to build connectivity probe", err)
		os.Exit(1)
	}

	credentialsService, err := credentials.NewService(backend, logg)
	if err != nil {
		logg.Error(ctx, "failed to build credentials service", err)
		os.Exit(1)
	}
	for _, mode := range []enums.Mode{enums.ModeSandbox, enums.ModeLive} {
		if _, err := credentialsService.Refresh(ctx, mode); err != nil {
			logg.Warn(logg.WithMode(ctx, string(mode)), "credential readiness not available yet")
		}
	}

	transactionsService, err := transactions.NewService(backend, redisClient, logg, cfg.Poller.TxCacheTTL)
	if err != nil {
		logg.Error(ctx, "failed to build transactions service", err)
		os.Exit(1)
	}

	refundsService, err := refunds.NewService(backend, transactionsService, logg, posMetrics)
	if err != nil {
		logg.Error(ctx, "failed to build refunds service", err)
		os.Exit(1)
	}

	offlineService, err := offline.NewService(
		store, backend, probe, transactionsService, logg, posMetrics,
		cfg.Backend.DynamicSessionTTL, cfg.Backend.StaticSessionTTL,
	)
	if err != nil {
		logg.Error(ctx, "failed to build offline queue", err)
		os.Exit(1)
	}

	dispatcher, err := notify.NewDispatcher(
		notify.NewVisualChannel(50),
		notify.NewSoundChannel(nil),
		notify.NewHapticChannel(nil),
		settingsToggles{settingsService},
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to build notification dispatcher", err)
		os.Exit(1)
	}

	manager, err := session.NewManager(
		backend, credentialsService, probe, offlineService, dispatcher, settingsService,
		logg, posMetrics,
		session.Options{
			PollInterval:   cfg.Poller.Interval,
			PollTimeout:    cfg.Poller.RequestTimeout,
			NativeCurrency: cfg.Backend.NativeCurrency,
			DynamicTTL:     cfg.Backend.DynamicSessionTTL,
			StaticTTL:      cfg.Backend.StaticSessionTTL,
		},
	)
	if err != nil {
		logg.Error(ctx, "failed to build session manager", err)
		os.Exit(1)
	}
	defer manager.Close()

	if cfg.FeatureFlags.DrainOnStart {
		drainMode, err := enums.ParseMode(cfg.Terminal.DefaultMode)
		if err != nil {
			drainMode = enums.ModeSandbox
		}
		if result, err := offlineService.Sync(ctx, drainMode); err != nil {
			logg.Warn(ctx, "startup offline drain skipped")
		} else if result.Attempted > 0 {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"attempted": result.Attempted,
				"succeeded": result.Succeeded,
				"failed":    result.Failed,
			}), "startup offline drain complete")
		}
	}

	handler := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Redis:    redisClient,
		Registry: registry,
		ReadyChecks: []controllers.ReadyCheck{
			{Name: "database", Ping: dbClient.Ping},
			{Name: "redis", Ping: redisClient.Ping},
		},
		Manager:      manager,
		Offline:      offlineService,
		Credentials:  credentialsService,
		Transactions: transactionsService,
		Refunds:      refundsService,
		Settings:     settingsService,
		Notifier:     dispatcher,
	})

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting pos api server")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(startCtx, "pos api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(startCtx, "pos api server stopped")
}

// settingsToggles adapts the settings service to the dispatcher's toggle
// reads so preference changes apply without a restart.
type settingsToggles struct {
	svc settings.Service
}

func (t settingsToggles) SoundEnabled(ctx context.Context) bool {
	prefs, err := t.svc.Get(ctx)
	if err != nil {
		return false
	}
	return prefs.Sound
}

func (t settingsToggles) HapticEnabled(ctx context.Context) bool {
	prefs, err := t.svc.Get(ctx)
	if err != nil {
		return false
	}
	return prefs.Vibration
}
