package engine

import (
	"github.com/shopspring/decimal"

	"volume-surge-alerts/internal/market"
)

// HighTierRatio is the fixed escalation level. It is independent of the
// user-configurable threshold: crossing it upgrades an alert from a passive
// log entry to a strong external notification.
const HighTierRatio = 15.0

// Evaluation is the outcome of one breakout check.
type Evaluation struct {
	Ratio    float64
	Breakout bool
	Tier     market.Tier
}

// Evaluate computes the surge ratio of current-minute volume against the
// per-minute baseline. Pure function, no side effects. A non-positive baseline
// means history is not known yet; evaluation is skipped, not failed.
func Evaluate(volume, baseline, threshold float64) (Evaluation, bool) {
	if baseline <= 0 {
		return Evaluation{}, false
	}

	ratio := decimal.NewFromFloat(volume).
		Div(decimal.NewFromFloat(baseline)).
		Round(2).
		InexactFloat64()

	eval := Evaluation{
		Ratio:    ratio,
		Breakout: ratio > threshold,
		Tier:     market.TierNormal,
	}
	if ratio >= HighTierRatio {
		eval.Tier = market.TierHigh
	}
	return eval, true
}
