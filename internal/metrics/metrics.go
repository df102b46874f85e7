package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes decision-engine metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	cacheHits      *prometheus.CounterVec
	cacheRefreshes *prometheus.CounterVec
	fetchErrors    *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	runDuration    prometheus.Histogram
}

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robo_investor_cache_hits_total",
				Help: "Payloads served from the local cache",
			},
			[]string{"ticker"},
		),
		cacheRefreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robo_investor_cache_refreshes_total",
				Help: "Payloads fetched from the API because they were missing or stale",
			},
			[]string{"ticker", "reason"},
		),
		fetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robo_investor_fetch_errors_total",
				Help: "Failed market data fetches",
			},
			[]string{"ticker"},
		),
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robo_investor_decisions_total",
				Help: "Evaluated instruments by outcome",
			},
			[]string{"ticker", "outcome"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "robo_investor_last_price",
				Help: "Most recent close price seen for a ticker",
			},
			[]string{"ticker"},
		),
		runDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "robo_investor_run_duration_seconds",
				Help:    "Duration of a full evaluation batch",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (r *Recorder) RecordCacheHit(ticker string) {
	if r == nil {
		return
	}
	r.cacheHits.WithLabelValues(ticker).Inc()
}

func (r *Recorder) RecordCacheRefresh(ticker, reason string) {
	if r == nil {
		return
	}
	r.cacheRefreshes.WithLabelValues(ticker, reason).Inc()
}

func (r *Recorder) RecordFetchError(ticker string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(ticker).Inc()
}

// RecordDecision counts an outcome: "buy", "hold" or "error".
func (r *Recorder) RecordDecision(ticker, outcome string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(ticker, outcome).Inc()
}

func (r *Recorder) RecordLastPrice(ticker string, price float64) {
	if r == nil {
		return
	}
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

func (r *Recorder) RecordRunDuration(seconds float64) {
	if r == nil {
		return
	}
	r.runDuration.Observe(seconds)
}
