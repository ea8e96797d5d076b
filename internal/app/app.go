package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"broadcast-tracker/internal/alerting"
	"broadcast-tracker/internal/config"
	"broadcast-tracker/internal/dedup"
	"broadcast-tracker/internal/enrich"
	"broadcast-tracker/internal/fetcher"
	"broadcast-tracker/internal/scheduler"
	"broadcast-tracker/internal/service"
	"broadcast-tracker/internal/storage"
	"broadcast-tracker/internal/storage/memory"
	"broadcast-tracker/internal/verification"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newClient() *fetcher.Client {
	return fetcher.NewClient(fetcher.Options{
		Endpoint:    a.Config.Feed.Endpoint,
		AuthToken:   a.Config.Feed.AuthToken,
		ProfileID:   a.Config.Feed.ProfileID,
		MaxRetries:  a.Config.Fetch.MaxRetries,
		BackoffBase: a.Config.Fetch.BackoffBase,
		Timeout:     a.Config.Fetch.RequestTimeout,
		UserAgent:   a.Config.Fetch.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) winThreshold() decimal.Decimal {
	return decimal.NewFromFloat(a.Config.Verification.WinThresholdPct)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running ingestion service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var sink storage.BroadcastStore
	if store != nil {
		sink = store
	} else {
		a.Logger.Warn().Msg("database.dsn not configured; records kept in memory only")
		sink = memory.NewBroadcastStore()
	}

	dedupStore := dedup.NewStore()
	if store != nil {
		count, rehydrateErr := dedupStore.Rehydrate(ctx, store)
		if rehydrateErr != nil {
			a.Logger.Error().Err(rehydrateErr).Msg("dedup rehydration failed; starting cold")
		} else {
			a.Logger.Info().Int("known_ids", count).Msg("dedup store rehydrated")
		}
	}

	client := a.newClient()
	notifier := a.newNotifier()
	enricher := enrich.New(client, client, a.Logger)

	verifier := verification.NewScheduler(client, sink, notifier, a.winThreshold(), a.Config.Alerting.Channels, a.Logger)
	defer verifier.Close()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Feed.PollInterval,
		StartupDelay: a.Config.Feed.StartupDelay,
	}, a.Logger)

	svc := service.New(a.Config, sched, client, dedupStore, enricher, sink, verifier, notifier, a.Logger)

	a.Logger.Info().Msg("starting broadcast tracker")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("broadcast tracker stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical records.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ReverifyOptions configure the reverification job.
type ReverifyOptions struct {
	OlderThan time.Duration
	DryRun    bool
}
