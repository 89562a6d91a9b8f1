package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"volume-surge-alerts/internal/config"
	"volume-surge-alerts/internal/fetcher"
	"volume-surge-alerts/internal/market"
	"volume-surge-alerts/internal/stream"
)

// ErrSuperseded marks initialization work whose configuration generation was
// overtaken before its results could be applied.
var ErrSuperseded = errors.New("engine: initialization superseded")

// Options configure one engine instance.
type Options struct {
	Mode            string
	RankRange       market.RankRange
	Symbols         []string
	QuoteAsset      string
	ExcludedPrefix  string
	Threshold       float64
	Debounce        time.Duration
	MaxEvents       int
	CandleLimit     int
	AlertingEnabled bool
}

// StreamClient is the transport the engine consumes. Satisfied by
// stream.Client; swapped for a fake in tests.
type StreamClient interface {
	Connect(ctx context.Context) error
	Events() <-chan stream.Event
	Status() stream.Status
	Close() error
}

// DialFunc builds a stream client for a subscription set.
type DialFunc func(symbols []string) StreamClient

// AlertHook receives every accepted alert exactly once, synchronously on the
// consumer path.
type AlertHook func(market.AlertEvent)

// Engine owns the full pipeline: selection, baseline resolution, stream
// consumption, state aggregation, breakout detection, and the alert log. All
// mutation happens on the single goroutine running the session; external
// readers get copies.
type Engine struct {
	opts     Options
	universe fetcher.UniverseFetcher
	candles  fetcher.CandleFetcher
	dial     DialFunc
	logger   zerolog.Logger
	onAlert  AlertHook

	generation atomic.Uint64

	mu     sync.RWMutex
	store  *StateStore
	alerts *AlertLog
	status stream.Status
}

// New constructs an engine.
func New(opts Options, universe fetcher.UniverseFetcher, candles fetcher.CandleFetcher, dial DialFunc, logger zerolog.Logger) *Engine {
	if opts.CandleLimit <= 0 {
		opts.CandleLimit = 7
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = 50
	}
	return &Engine{
		opts:     opts,
		universe: universe,
		candles:  candles,
		dial:     dial,
		logger:   logger.With().Str("component", "engine").Logger(),
		status:   stream.StatusDisconnected,
	}
}

// SetAlertHook installs the notification side-effect callback.
func (e *Engine) SetAlertHook(hook AlertHook) {
	e.onAlert = hook
}

// RunSession performs one full initialize-subscribe-consume cycle and blocks
// until the context is cancelled or the transport ends. The engine never
// reconnects on its own; the caller owns re-initialization.
func (e *Engine) RunSession(ctx context.Context) error {
	gen := e.generation.Add(1)
	e.setStatus(stream.StatusConnecting)

	instruments, err := e.initialize(ctx, gen)
	if err != nil {
		// A superseded run must not clobber the live session's status.
		switch {
		case errors.Is(err, ErrSuperseded):
		case ctx.Err() != nil:
			e.setStatus(stream.StatusDisconnected)
		default:
			e.setStatus(stream.StatusError)
		}
		return err
	}

	store := NewStateStore(instruments)
	alerts := NewAlertLog(e.opts.MaxEvents, e.opts.Debounce)

	e.mu.Lock()
	if e.generation.Load() != gen {
		e.mu.Unlock()
		return ErrSuperseded
	}
	e.store = store
	e.alerts = alerts
	e.mu.Unlock()

	client := e.dial(store.Symbols())
	if err := client.Connect(ctx); err != nil {
		e.setStatus(stream.StatusError)
		return err
	}
	defer client.Close()
	e.setStatus(stream.StatusConnected)

	e.logger.Info().Uint64("generation", gen).Int("instruments", store.Len()).Msg("session started")
	return e.consume(ctx, client)
}

// initialize fetches the universe, selects the subscription set, and resolves
// baselines with a concurrent fan-out. Results are discarded if a newer
// generation started meanwhile.
func (e *Engine) initialize(ctx context.Context, gen uint64) ([]market.Instrument, error) {
	degraded := false
	tickers, err := e.universe.FetchUniverse(ctx)
	if err != nil {
		if len(e.opts.Symbols) == 0 {
			return nil, fmt.Errorf("fetch universe: %w", err)
		}
		e.logger.Warn().Err(err).Msg("universe snapshot unavailable; falling back to configured list")
		tickers = market.FallbackUniverse(e.opts.Symbols)
		degraded = true
	}

	// A degraded universe carries only the configured symbols; a rank window
	// sliced out of it would be meaningless, so the list is used as-is.
	var selected []market.UniverseTicker
	switch {
	case degraded || e.opts.Mode == config.ModeList:
		selected = market.SelectList(tickers, e.opts.Symbols)
	default:
		selected = market.SelectRanked(tickers, e.opts.RankRange, market.SelectorOptions{
			QuoteAsset:     e.opts.QuoteAsset,
			ExcludedPrefix: e.opts.ExcludedPrefix,
		})
	}
	if len(selected) == 0 {
		return nil, errors.New("engine: selection produced no instruments")
	}

	results := make([]*market.Instrument, len(selected))
	var wg sync.WaitGroup
	for i, target := range selected {
		wg.Add(1)
		go func(i int, target market.UniverseTicker) {
			defer wg.Done()

			candles, err := e.candles.FetchDailyCandles(ctx, target.Symbol, e.opts.CandleLimit)
			if err != nil {
				// A failed instrument drops out; the batch carries on.
				e.logger.Warn().Err(err).Str("symbol", target.Symbol).Msg("history fetch failed; dropping instrument")
				return
			}

			price := target.LastPrice
			if price == 0 && len(candles) > 0 {
				price = candles[len(candles)-1].Close
			}

			results[i] = &market.Instrument{
				Symbol:         target.Symbol,
				Name:           market.DisplayName(target.Symbol, e.opts.QuoteAsset),
				Price:          price,
				Change24h:      target.ChangePct,
				MinuteBaseline: market.MinuteBaseline(candles),
				LastUpdatedAt:  time.Now().UTC(),
			}
		}(i, target)
	}
	wg.Wait()

	// Stale fetches must never seed a store built for a newer configuration.
	if e.generation.Load() != gen {
		return nil, ErrSuperseded
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	instruments := make([]market.Instrument, 0, len(results))
	for _, r := range results {
		if r != nil {
			instruments = append(instruments, *r)
		}
	}
	if len(instruments) == 0 {
		return nil, errors.New("engine: no instrument survived history resolution")
	}
	return instruments, nil
}

// consume is the single consumer loop: one message at a time, applied to the
// store and evaluated before the next is read.
func (e *Engine) consume(ctx context.Context, client StreamClient) error {
	for {
		select {
		case <-ctx.Done():
			_ = client.Close()
			e.drain(client)
			e.setStatus(stream.StatusDisconnected)
			return ctx.Err()

		case ev, ok := <-client.Events():
			if !ok {
				st := client.Status()
				e.setStatus(st)
				if st == stream.StatusError {
					return errors.New("engine: stream transport failed")
				}
				e.logger.Info().Msg("stream ended")
				return nil
			}
			e.apply(ev)
		}
	}
}

func (e *Engine) drain(client StreamClient) {
	for range client.Events() {
	}
}

func (e *Engine) apply(ev stream.Event) {
	now := time.Now()

	switch {
	case ev.Volume != nil:
		e.mu.Lock()
		inst, ok := e.store.ApplyVolumeUpdate(ev.Symbol, ev.Volume.CurrentMinuteVolume, now)
		e.mu.Unlock()
		if !ok {
			return
		}
		e.evaluate(inst)

	case ev.Ticker != nil:
		e.mu.Lock()
		e.store.ApplyTickerUpdate(ev.Symbol, ev.Ticker.Close, ev.Ticker.Open, now)
		e.mu.Unlock()
	}
}

func (e *Engine) evaluate(inst market.Instrument) {
	eval, ok := Evaluate(inst.LastMinuteVolume, inst.MinuteBaseline, e.opts.Threshold)
	if !ok || !eval.Breakout {
		return
	}
	if !e.opts.AlertingEnabled {
		return
	}

	e.mu.Lock()
	event, accepted := e.alerts.Record(inst, eval)
	e.mu.Unlock()
	if !accepted {
		return
	}

	e.logger.Info().
		Str("symbol", event.Symbol).
		Float64("ratio", event.Ratio).
		Str("tier", string(event.Tier)).
		Msg("volume surge alert")

	if e.onAlert != nil {
		e.onAlert(event)
	}
}

// Snapshot returns a copy of the current instrument table in selection order.
func (e *Engine) Snapshot() []market.Instrument {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.store == nil {
		return nil
	}
	return e.store.Snapshot()
}

// Alerts returns a copy of the alert log, newest first.
func (e *Engine) Alerts() []market.AlertEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.alerts == nil {
		return nil
	}
	return e.alerts.Events()
}

// Status reports the current transport state.
func (e *Engine) Status() stream.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Engine) setStatus(s stream.Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}
