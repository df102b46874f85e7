package timeseries

import (
	"encoding/json"
	"fmt"

	"RoboInvestor/internal/model"

	"github.com/shopspring/decimal"
)

// SeriesKey is the top-level key holding 5-minute intraday observations.
const SeriesKey = "Time Series (5min)"

// Observation is one bar of the upstream intraday series. Only the close is read.
// Close is invalid when the field is missing or null.
type Observation struct {
	Close decimal.NullDecimal `json:"4. close"`
}

// Series maps a timestamp label ("2006-01-02 15:04:05") to its observation.
type Series map[string]Observation

// Parse decodes a raw intraday payload and returns its series.
func Parse(payload []byte) (Series, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", model.ErrDataUnavailable, err)
	}
	raw, ok := doc[SeriesKey]
	if !ok {
		return nil, fmt.Errorf("%w: payload has no %q", model.ErrDataUnavailable, SeriesKey)
	}
	var series Series
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("%w: decode series: %v", model.ErrDataUnavailable, err)
	}
	for label, obs := range series {
		if !obs.Close.Valid {
			return nil, fmt.Errorf("%w: observation %s has no close", model.ErrDataUnavailable, label)
		}
	}
	return series, nil
}

// Latest returns the two most recent observations, current first.
//
// Recency is the lexical order of the labels. The upstream labels are
// fixed-width and zero-padded, so lexical and chronological order agree;
// labels that break that format are still ordered lexically.
func Latest(series Series) (current, previous model.PricePoint, err error) {
	if len(series) < 2 {
		return current, previous, fmt.Errorf("%w: need 2 observations, got %d", model.ErrInsufficientData, len(series))
	}
	var first, second string
	seen := 0
	for label := range series {
		switch {
		case seen == 0 || label > first:
			if seen > 0 {
				second = first
			}
			first = label
		case seen == 1 || label > second:
			second = label
		}
		seen++
	}
	for _, label := range []string{first, second} {
		if !series[label].Close.Valid {
			return current, previous, fmt.Errorf("%w: observation %s has no close", model.ErrDataUnavailable, label)
		}
	}
	current = model.PricePoint{Label: first, Close: series[first].Close.Decimal}
	previous = model.PricePoint{Label: second, Close: series[second].Close.Decimal}
	return current, previous, nil
}
