package market

import "time"

// Instrument is the live observable state of one tracked symbol.
type Instrument struct {
	Symbol           string
	Name             string
	Price            float64
	Change24h        float64
	LastMinuteVolume float64
	MinuteBaseline   float64
	LastUpdatedAt    time.Time
}

// Tier classifies alert severity independently of the configurable threshold.
type Tier string

const (
	TierNormal Tier = "normal"
	TierHigh   Tier = "high"
)

// AlertEvent is an immutable record of one accepted breakout alert.
type AlertEvent struct {
	ID        int64
	Symbol    string
	Price     float64
	Ratio     float64
	Volume    float64
	Tier      Tier
	EmittedAt time.Time
}

// UniverseTicker is one row of the 24h ticker universe snapshot.
type UniverseTicker struct {
	Symbol    string
	ChangePct float64
	LastPrice float64
}

// Candle is a single daily candle; only close and volume matter here.
type Candle struct {
	OpenTime time.Time
	Close    float64
	Volume   float64
}
