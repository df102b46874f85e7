package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is a tracked ticker and its reference price threshold.
// The threshold is shown next to the current price; it does not drive the buy decision.
type Instrument struct {
	Ticker    string  `yaml:"ticker" validate:"required"`
	Threshold float64 `yaml:"threshold"`
}

// PricePoint is one observation taken from a time-series payload.
type PricePoint struct {
	Label string
	Close decimal.Decimal
}

// CachedPayload is a raw market-data payload together with its last write time.
type CachedPayload struct {
	Ticker     string
	Data       []byte
	ModifiedAt time.Time
}
