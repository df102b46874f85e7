package collector

import "context"

// Fetcher retrieves a raw intraday payload for one ticker.
// Payloads carry a "Time Series (5min)" object keyed by timestamp label.
type Fetcher interface {
	Fetch(ctx context.Context, ticker string) ([]byte, error)
	Name() string
}
