package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord is one audited alert emission.
type AlertRecord struct {
	ID           int64
	Symbol       string
	Price        decimal.Decimal
	Ratio        decimal.Decimal
	ThresholdPct decimal.Decimal
	Volume       decimal.Decimal
	Tier         string
	EmittedAt    time.Time
	CreatedAt    time.Time
}
