package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"volume-surge-alerts/internal/alerting"
	"volume-surge-alerts/internal/engine"
)

// SimulateAlert runs one synthetic evaluation through the detector and, when a
// notifier is configured, dispatches the resulting message. Useful for
// verifying channel wiring without waiting for a real breakout.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if opts.Symbol == "" {
		return errors.New("symbol is required")
	}
	if opts.Baseline <= 0 {
		return errors.New("baseline must be positive")
	}

	symbol := strings.ToUpper(opts.Symbol)
	threshold := a.Config.Detector.Threshold

	eval, ok := engine.Evaluate(opts.Volume, opts.Baseline, threshold)
	if !ok {
		return errors.New("evaluation skipped; baseline must be positive")
	}

	fmt.Printf("symbol=%s volume=%.2f baseline=%.2f ratio=%.2fx threshold=%.2fx breakout=%v tier=%s\n",
		symbol, opts.Volume, opts.Baseline, eval.Ratio, threshold, eval.Breakout, eval.Tier)

	if !eval.Breakout {
		fmt.Println("未触发放量阈值，不发送告警")
		return nil
	}

	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("no notifier configured; simulated alert not dispatched")
		return nil
	}

	note := alerting.Notification{
		Symbol:       symbol,
		Ratio:        eval.Ratio,
		ThresholdPct: a.Config.Detector.Threshold,
		Volume:       opts.Volume,
		Tier:         eval.Tier,
		EmittedAt:    time.Now(),
	}
	if err := notifier.Notify(ctx, note); err != nil {
		return fmt.Errorf("dispatch simulated alert: %w", err)
	}

	a.Logger.Info().Str("symbol", symbol).Float64("ratio", eval.Ratio).Msg("simulated alert dispatched")
	return nil
}
