package model

import "github.com/shopspring/decimal"

// Action is the kind of recommendation produced for an instrument.
type Action string

const (
	ActionHold Action = "HOLD"
	ActionBuy  Action = "BUY"
)

// Recommendation is either a hold or a buy of Dollars worth (Shares whole shares).
type Recommendation struct {
	Action  Action
	Dollars float64
	Shares  int64
}

// Hold returns the hold recommendation.
func Hold() Recommendation { return Recommendation{Action: ActionHold} }

// Decision is the outcome of evaluating one instrument in one cycle.
type Decision struct {
	Instrument     Instrument
	CurrentPrice   decimal.Decimal
	PreviousPrice  decimal.Decimal
	PercentChange  decimal.Decimal
	Recommendation Recommendation
}

// Result holds either a Decision or the error that prevented one.
type Result struct {
	Instrument Instrument
	Decision   *Decision
	Err        error
}

// OK reports whether the instrument was evaluated successfully.
func (r Result) OK() bool { return r.Err == nil && r.Decision != nil }
