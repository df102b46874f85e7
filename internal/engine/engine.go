package engine

import (
	"context"
	"fmt"
	"time"

	"RoboInvestor/internal/freshness"
	"RoboInvestor/internal/metrics"
	"RoboInvestor/internal/model"
	"RoboInvestor/internal/sizing"
	"RoboInvestor/internal/timeseries"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

// Engine turns fresh market data into one Decision per instrument.
type Engine struct {
	cache   *freshness.Cache
	fetch   freshness.FetchFunc
	workers int
	metrics *metrics.Recorder
}

// New creates an Engine. workers < 1 evaluates instruments sequentially.
func New(cache *freshness.Cache, fetch freshness.FetchFunc, workers int, rec *metrics.Recorder) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{cache: cache, fetch: fetch, workers: workers, metrics: rec}
}

// Evaluate produces one Result per instrument, in the order given.
// Per-instrument failures are reported in the Result and never abort the batch.
// A zero target balance fails the whole batch before any instrument is fetched.
func (e *Engine) Evaluate(ctx context.Context, params model.Parameters, instruments []model.Instrument, accountBalance float64) ([]model.Result, error) {
	if params.TargetAccountBalance == 0 {
		return nil, fmt.Errorf("%w: target account balance must be nonzero", model.ErrInvalidParameter)
	}

	start := time.Now()
	results := make([]model.Result, len(instruments))

	// evaluateOne never fails; errors stay in the results
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range instruments {
		g.Go(func() error {
			results[i] = e.evaluateOne(gctx, params, instruments[i], accountBalance)
			return nil
		})
	}
	_ = g.Wait()

	e.metrics.RecordRunDuration(time.Since(start).Seconds())
	return results, nil
}

func (e *Engine) evaluateOne(ctx context.Context, params model.Parameters, in model.Instrument, accountBalance float64) model.Result {
	d, err := e.decide(ctx, params, in, accountBalance)
	if err != nil {
		log.Warn().Str("ticker", in.Ticker).Err(err).Msg("instrument evaluation failed")
		e.metrics.RecordDecision(in.Ticker, "error")
		return model.Result{Instrument: in, Err: &model.InstrumentError{Ticker: in.Ticker, Err: err}}
	}

	outcome := "hold"
	if d.Recommendation.Action == model.ActionBuy {
		outcome = "buy"
	}
	e.metrics.RecordDecision(in.Ticker, outcome)
	e.metrics.RecordLastPrice(in.Ticker, d.CurrentPrice.InexactFloat64())
	log.Info().
		Str("ticker", in.Ticker).
		Str("current", d.CurrentPrice.String()).
		Str("previous", d.PreviousPrice.String()).
		Str("change_pct", d.PercentChange.StringFixed(2)).
		Str("action", string(d.Recommendation.Action)).
		Float64("dollars", d.Recommendation.Dollars).
		Int64("shares", d.Recommendation.Shares).
		Msg("instrument evaluated")
	return model.Result{Instrument: in, Decision: d}
}

func (e *Engine) decide(ctx context.Context, params model.Parameters, in model.Instrument, accountBalance float64) (*model.Decision, error) {
	// Fetching
	payload, err := e.cache.Get(ctx, in.Ticker, params.ThresholdDataAge, e.fetch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}

	// Extracting
	series, err := timeseries.Parse(payload.Data)
	if err != nil {
		return nil, err
	}
	current, previous, err := timeseries.Latest(series)
	if err != nil {
		return nil, err
	}

	// Evaluating
	if !current.Close.IsPositive() {
		return nil, fmt.Errorf("%w: current close %s is not positive", model.ErrDataUnavailable, current.Close)
	}
	pct, err := PercentChange(current.Close, previous.Close)
	if err != nil {
		return nil, err
	}
	d := &model.Decision{
		Instrument:     in,
		CurrentPrice:   current.Close,
		PreviousPrice:  previous.Close,
		PercentChange:  pct,
		Recommendation: model.Hold(),
	}
	if !pct.LessThan(decimal.NewFromFloat(params.PercentageFallThreshold)) {
		return d, nil
	}

	dollars, err := sizing.InvestmentDollars(accountBalance, params.TargetAccountBalance, params.InvestmentAggression, pct.InexactFloat64())
	if err != nil {
		return nil, err
	}
	if dollars > 0 {
		d.Recommendation = model.Recommendation{
			Action:  model.ActionBuy,
			Dollars: dollars,
			Shares:  sizing.Shares(dollars, current.Close.InexactFloat64()),
		}
	}
	return d, nil
}

// PercentChange returns (current - previous) / previous * 100.
func PercentChange(current, previous decimal.Decimal) (decimal.Decimal, error) {
	if previous.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: previous close is zero", model.ErrDivisionByZero)
	}
	return current.Sub(previous).Div(previous).Mul(hundred), nil
}
