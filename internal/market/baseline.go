package market

// MinutesPerDay normalises a daily volume to a per-minute rate.
const MinutesPerDay = 1440

// FallbackBaseline keeps the surge ratio bounded when no history is available.
const FallbackBaseline = 1.0

// MinuteBaseline derives the expected per-minute volume from daily candles in
// chronological order. The most recent candle (possibly still forming) and
// everything older than the trailing 5-day window are excluded, so at least 6
// candles are required; otherwise the baseline falls back to 1.
func MinuteBaseline(candles []Candle) float64 {
	if len(candles) < 6 {
		return FallbackBaseline
	}

	window := candles[len(candles)-6 : len(candles)-1]
	var total float64
	for _, c := range window {
		total += c.Volume
	}

	avg := total / float64(len(window))
	baseline := avg / MinutesPerDay
	if baseline <= 0 {
		return FallbackBaseline
	}
	return baseline
}
