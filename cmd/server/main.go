// Command server runs the FADEM rent ledger HTTP service with its arrears
// monitor, backups and alert notifiers.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/activity"
	"github.com/matthewbaird/fadem/internal/arrears"
	"github.com/matthewbaird/fadem/internal/clock"
	"github.com/matthewbaird/fadem/internal/config"
	"github.com/matthewbaird/fadem/internal/event"
	"github.com/matthewbaird/fadem/internal/eventbus"
	"github.com/matthewbaird/fadem/internal/handler"
	"github.com/matthewbaird/fadem/internal/ledger"
	"github.com/matthewbaird/fadem/internal/logger"
	"github.com/matthewbaird/fadem/internal/notify"
	"github.com/matthewbaird/fadem/internal/server"
	"github.com/matthewbaird/fadem/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "fadem")
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	err = run(cfg, log)
	if err != nil {
		log.Error("server exited", zap.Error(err))
	}
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	clk := clock.System{}
	repo := storage.NewRepository(backend.KV, cfg.Module,
		storage.WithCurrency(cfg.Currency),
		storage.WithClock(clk),
		storage.WithLogger(log))

	// Activity entries share the SQL connection when there is one.
	var store activity.Store = activity.NewMemoryStore()
	if backend.DB != nil {
		sqlStore := activity.NewSQLStore(backend.DB, backend.Dialect)
		if err := sqlStore.Migrate(ctx); err != nil {
			return err
		}
		store = sqlStore
	}

	var engine *ledger.Engine
	bus := eventbus.New(256, log)
	bus.Subscribe("log", eventbus.NewLogConsumer(log))
	stream := handler.NewAlertStream(func() []ledger.Alert { return engine.Alerts(false) }, log)
	bus.Subscribe("alert_stream", stream)

	notifiers, closeNotifiers, err := buildNotifiers(cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifiers()
	if len(notifiers) > 0 {
		bus.Subscribe("notify", notify.NewAlertConsumer(notifiers, log))
	}

	recorder := event.NewActivityRecorder(store)
	recorder.SetPublisher(bus)

	engine, err = ledger.NewEngine(ctx, repo, clk, ledger.WithLogger(log), ledger.WithRecorder(recorder))
	if err != nil {
		return err
	}

	bus.Start(ctx)
	defer bus.Stop()

	// Background jobs publish through the bus, so they must be gone before
	// it stops.
	monitor := arrears.NewMonitor(engine, cfg.ScanInterval, log)
	stopJobs := startJobs(ctx,
		monitor.Run,
		func(ctx context.Context) { repo.RunBackups(ctx, cfg.BackupInterval) },
	)
	defer stopJobs()

	return server.Run(ctx, server.Config{
		Addr:     cfg.Addr(),
		Engine:   engine,
		Repo:     repo,
		Monitor:  monitor,
		Activity: store,
		Stream:   stream,
		Clock:    clk,
		Logger:   log,
	})
}

// startJobs runs each job in its own goroutine. The returned func cancels
// them and blocks until all have returned.
func startJobs(ctx context.Context, jobs ...func(context.Context)) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Go(func() { job(ctx) })
	}
	return func() {
		cancel()
		wg.Wait()
	}
}

func buildNotifiers(cfg *config.Config, log *zap.Logger) (notify.Multi, func(), error) {
	var (
		out     notify.Multi
		closers []func()
	)
	if cfg.WebhookURL != "" {
		out = append(out, notify.NewWebhook(cfg.WebhookURL))
		log.Info("webhook notifier enabled", zap.String("url", cfg.WebhookURL))
	}
	if cfg.MQTT.Broker != "" {
		client, err := notify.ConnectMQTT(notify.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, client.Disconnect)
		out = append(out, notify.NewMQTT(client.Publish, cfg.MQTT.Topic))
		log.Info("mqtt notifier enabled", zap.String("broker", cfg.MQTT.Broker))
	}
	return out, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
