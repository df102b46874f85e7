package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"RoboInvestor/internal/timeseries"

	"github.com/go-resty/resty/v2"
)

// DefaultYahooURL is the Yahoo Finance chart API root.
const DefaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// yahooLabelLayout matches the upstream intraday label format so lexical order stays chronological.
const yahooLabelLayout = "2006-01-02 15:04:05"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API and
// re-shapes the 5-minute bars into an intraday series payload.
type YahooFetcher struct {
	client   *resty.Client
	location *time.Location
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL string, timeout time.Duration, proxyURL string) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": "Mozilla/5.0",
		})
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &YahooFetcher{client: client, location: loc}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type seriesBar struct {
	Close string `json:"4. close"`
}

func (f *YahooFetcher) Fetch(ctx context.Context, ticker string) ([]byte, error) {
	var chart yahooChart
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": "5m",
			"range":    "1d",
		}).
		SetResult(&chart).
		Get("/" + url.PathEscape(ticker))
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", ticker, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("yahoo fetch %s: status %d, body: %s", ticker, resp.StatusCode(), resp.String())
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", ticker)
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	series := make(map[string]seriesBar, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // null bars (halts, pre-open)
		}
		label := time.Unix(ts, 0).In(f.location).Format(yahooLabelLayout)
		series[label] = seriesBar{Close: strconv.FormatFloat(*closes[i], 'f', 4, 64)}
	}

	return json.Marshal(map[string]any{
		"Meta Data": map[string]string{
			"2. Symbol":   ticker,
			"4. Interval": "5min",
		},
		timeseries.SeriesKey: series,
	})
}
