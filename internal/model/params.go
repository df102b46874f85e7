package model

import "time"

// Parameters are the tunables of the decision engine, loaded once per process.
type Parameters struct {
	TargetAccountBalance    float64
	ThresholdDataAge        time.Duration
	InvestmentAggression    float64 // nominally 0.0 ~ 1.0
	PercentageFallThreshold float64 // signed percent, usually negative
	APIKey                  string
}
