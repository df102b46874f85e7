package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means a required parameter is missing or malformed. Fatal.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidParameter means a parameter makes sizing undefined. Fatal.
	ErrInvalidParameter = errors.New("invalid parameter")

	// Per-instrument failures; the batch continues.
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrInsufficientData = errors.New("insufficient data")
	ErrDivisionByZero   = errors.New("division by zero")
)

// InstrumentError tags a per-instrument failure with its ticker.
type InstrumentError struct {
	Ticker string
	Err    error
}

func (e *InstrumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Ticker, e.Err)
}

func (e *InstrumentError) Unwrap() error { return e.Err }
