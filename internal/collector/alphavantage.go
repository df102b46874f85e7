package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"RoboInvestor/internal/timeseries"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// DefaultAlphaVantageURL is the public Alpha Vantage endpoint.
const DefaultAlphaVantageURL = "https://www.alphavantage.co"

// upstream reports problems with a 200 and one of these keys instead of data
var upstreamErrorKeys = []string{"Error Message", "Note", "Information"}

// AlphaVantageFetcher implements Fetcher with the TIME_SERIES_INTRADAY endpoint.
// Requests are throttled to the configured per-minute budget.
type AlphaVantageFetcher struct {
	client  *resty.Client
	apiKey  string
	limiter *rate.Limiter
}

// NewAlphaVantageFetcher creates a fetcher with optional proxy support.
func NewAlphaVantageFetcher(baseURL, apiKey string, requestsPerMinute int, timeout time.Duration, proxyURL string) *AlphaVantageFetcher {
	if baseURL == "" {
		baseURL = DefaultAlphaVantageURL
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 5
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &AlphaVantageFetcher{
		client:  client,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

func (f *AlphaVantageFetcher) Fetch(ctx context.Context, ticker string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("alphavantage rate limit wait: %w", err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "TIME_SERIES_INTRADAY",
			"symbol":   ticker,
			"interval": "5min",
			"apikey":   f.apiKey,
		}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("alphavantage fetch %s: %w", ticker, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("alphavantage fetch %s: status %d, body: %s", ticker, resp.StatusCode(), resp.String())
	}

	body := resp.Body()
	if err := checkPayload(body); err != nil {
		return nil, fmt.Errorf("alphavantage fetch %s: %w", ticker, err)
	}
	return body, nil
}

// checkPayload rejects bodies that would otherwise be cached as if they were data.
func checkPayload(body []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	for _, key := range upstreamErrorKeys {
		if raw, ok := doc[key]; ok {
			var msg string
			if json.Unmarshal(raw, &msg) != nil {
				msg = string(raw)
			}
			return fmt.Errorf("api error: %s", msg)
		}
	}
	if _, ok := doc[timeseries.SeriesKey]; !ok {
		return fmt.Errorf("response has no %q", timeseries.SeriesKey)
	}
	return nil
}
