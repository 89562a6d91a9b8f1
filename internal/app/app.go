package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"volume-surge-alerts/internal/alerting"
	"volume-surge-alerts/internal/config"
	"volume-surge-alerts/internal/engine"
	"volume-surge-alerts/internal/fetcher"
	"volume-surge-alerts/internal/market"
	"volume-surge-alerts/internal/scheduler"
	"volume-surge-alerts/internal/storage"
	"volume-surge-alerts/internal/stream"
)

// retentionInterval is the pruning cadence of the alert audit trail.
const retentionInterval = time.Hour

// rebuildFloor keeps a failing transport from rebuilding in a tight loop.
const rebuildFloor = 5 * time.Second

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() *fetcher.Binance {
	return fetcher.NewBinance(fetcher.BinanceOptions{
		BaseURL:   a.Config.Binance.RestBaseURL,
		Timeout:   a.Config.Binance.RequestTimeout,
		UserAgent: a.Config.Binance.UserAgent,
	}, a.Logger)
}

func (a *App) newEngine() *engine.Engine {
	binance := a.newFetcher()

	dial := func(symbols []string) engine.StreamClient {
		return stream.NewClient(stream.ClientOptions{
			BaseURL:   a.Config.Binance.StreamBaseURL,
			UserAgent: a.Config.Binance.UserAgent,
		}, symbols, a.Logger)
	}

	opts := engine.Options{
		Mode:            a.Config.Selection.Mode,
		RankRange:       market.NormalizeRange(a.Config.Selection.RankStart, a.Config.Selection.RankEnd),
		Symbols:         a.Config.Selection.Symbols,
		QuoteAsset:      a.Config.Selection.QuoteAsset,
		ExcludedPrefix:  a.Config.Selection.ExcludedPrefix,
		Threshold:       a.Config.Detector.Threshold,
		Debounce:        a.Config.Alerting.Debounce,
		MaxEvents:       a.Config.Alerting.MaxEvents,
		CandleLimit:     a.Config.Binance.CandleLimit,
		AlertingEnabled: a.Config.Alerting.Enabled,
	}

	return engine.New(opts, binance, binance, dial, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
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
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running monitoring engine.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; alert auditing disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	notifier := a.newNotifier()
	eng := a.newEngine()
	eng.SetAlertHook(a.alertHook(store, notifier))

	if store != nil && a.Config.Alerting.Retention > 0 {
		go a.runRetention(ctx, store)
	}

	a.Logger.Info().
		Str("mode", a.Config.Selection.Mode).
		Float64("threshold", a.Config.Detector.Threshold).
		Msg("starting surge monitoring engine")

	err = a.runSessions(ctx, eng)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("engine terminated with error")
		return err
	}

	a.Logger.Info().Msg("surge monitoring engine stopped")
	return nil
}

// runSessions owns engine lifecycle: one session per subscription set. With a
// refresh interval configured, each session is torn down and fully rebuilt at
// the interval boundary so the ranked selection can drift; without one, a dead
// transport ends the process in line with the manual re-initialization policy.
func (a *App) runSessions(ctx context.Context, eng *engine.Engine) error {
	refresh := a.Config.Selection.RefreshInterval

	for {
		sessionCtx := ctx
		var cancelSession context.CancelFunc
		if refresh > 0 {
			sessionCtx, cancelSession = context.WithTimeout(ctx, refresh)
		}

		started := time.Now()
		err := eng.RunSession(sessionCtx)
		if cancelSession != nil {
			cancelSession()
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, engine.ErrSuperseded) {
			continue
		}
		if refresh <= 0 {
			if err == nil {
				err = errors.New("stream ended; re-run to re-initialize")
			}
			return err
		}

		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			a.Logger.Warn().Err(err).Msg("session ended early; rebuilding")
			if elapsed := time.Since(started); elapsed < rebuildFloor {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(rebuildFloor - elapsed):
				}
			}
		} else {
			a.Logger.Info().Msg("refresh interval reached; rebuilding subscription set")
		}
	}
}

// alertHook audits every accepted alert and escalates high-tier ones to the
// external notifier.
func (a *App) alertHook(store *storage.Store, notifier alerting.Notifier) engine.AlertHook {
	return func(ev market.AlertEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if store != nil {
			record := storage.AlertRecord{
				Symbol:       ev.Symbol,
				Price:        decimal.NewFromFloat(ev.Price),
				Ratio:        decimal.NewFromFloat(ev.Ratio),
				ThresholdPct: decimal.NewFromFloat(a.Config.Detector.Threshold),
				Volume:       decimal.NewFromFloat(ev.Volume),
				Tier:         string(ev.Tier),
				EmittedAt:    ev.EmittedAt,
			}
			if _, err := store.InsertAlert(ctx, record); err != nil {
				a.Logger.Error().Err(err).Str("symbol", ev.Symbol).Msg("failed to persist alert record")
			}
		}

		if notifier != nil && ev.Tier == market.TierHigh {
			note := alerting.Notification{
				Symbol:       ev.Symbol,
				Price:        ev.Price,
				Ratio:        ev.Ratio,
				ThresholdPct: a.Config.Detector.Threshold,
				Volume:       ev.Volume,
				Tier:         ev.Tier,
				EmittedAt:    ev.EmittedAt,
			}
			if err := notifier.Notify(ctx, note); err != nil {
				a.Logger.Error().Err(err).Str("symbol", ev.Symbol).Msg("failed to dispatch alert")
			}
		}
	}
}

func (a *App) runRetention(ctx context.Context, store *storage.Store) {
	sched := scheduler.New(scheduler.Options{
		Interval:     retentionInterval,
		StartupDelay: time.Minute,
	}, a.Logger)

	retention := a.Config.Alerting.Retention
	_ = sched.Run(ctx, func(ctx context.Context, now time.Time) error {
		pruned, err := store.DeleteAlertsBefore(ctx, now.Add(-retention))
		if err != nil {
			return err
		}
		if pruned > 0 {
			a.Logger.Info().Int64("pruned", pruned).Msg("alert audit trail pruned")
		}
		return nil
	})
}

// RankOptions configure the one-shot leaderboard command.
type RankOptions struct {
	Start int
	End   int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting audited alerts.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions drive one synthetic breakout evaluation.
type SimulateOptions struct {
	Symbol   string
	Volume   float64
	Baseline float64
}
