package collector

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"RoboInvestor/internal/timeseries"
)

// MockFetcher returns a synthetic intraday payload for development and testing.
// The last bar closes at Price and the one before it at Previous.
type MockFetcher struct {
	Price    float64
	Previous float64
	Bars     int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context, ticker string) ([]byte, error) {
	bars := m.Bars
	if bars < 2 {
		bars = 12
	}
	prev := m.Previous
	if prev == 0 {
		prev = m.Price
	}

	end := time.Now().UTC().Truncate(5 * time.Minute)
	series := make(map[string]seriesBar, bars)
	for i := 0; i < bars; i++ {
		p := prev * (1 + float64(i-bars)*0.001)
		switch i {
		case bars - 1:
			p = m.Price
		case bars - 2:
			p = prev
		}
		label := end.Add(-time.Duration(bars-1-i) * 5 * time.Minute).Format(yahooLabelLayout)
		series[label] = seriesBar{Close: strconv.FormatFloat(p, 'f', 4, 64)}
	}
	return json.Marshal(map[string]any{
		"Meta Data":          map[string]string{"2. Symbol": ticker},
		timeseries.SeriesKey: series,
	})
}
