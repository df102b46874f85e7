package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"RoboInvestor/internal/account"
	"RoboInvestor/internal/collector"
	"RoboInvestor/internal/engine"
	"RoboInvestor/internal/freshness"
	"RoboInvestor/internal/model"
	"RoboInvestor/internal/recorder"
)

type staticLister []model.Instrument

func (l staticLister) List(context.Context) ([]model.Instrument, error) { return l, nil }

type captureRecorder struct {
	runs []*recorder.Run
}

func (c *captureRecorder) RecordRun(run *recorder.Run) error {
	c.runs = append(c.runs, run)
	return nil
}

func (c *captureRecorder) Close() error { return nil }

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func params() model.Parameters {
	return model.Parameters{
		TargetAccountBalance:    5000,
		ThresholdDataAge:        15 * time.Minute,
		InvestmentAggression:    0.5,
		PercentageFallThreshold: -5,
		APIKey:                  "demo",
	}
}

func newScheduler(t *testing.T, p model.Parameters, fetcher collector.Fetcher, instruments ...model.Instrument) (*Scheduler, *captureRecorder, *captureSender) {
	t.Helper()
	am, err := account.NewManager(filepath.Join(t.TempDir(), "account.json"), 10000)
	if err != nil {
		t.Fatalf("account manager: %v", err)
	}
	eng := engine.New(freshness.NewCache(freshness.NewMemoryStore()), fetcher.Fetch, 2, nil)
	rec := &captureRecorder{}
	snd := &captureSender{}
	return NewScheduler(context.Background(), eng, am, staticLister(instruments), p, rec, snd), rec, snd
}

func TestRunCheck_BuyReportAndRecord(t *testing.T) {
	s, rec, _ := newScheduler(t, params(), &collector.MockFetcher{Price: 95, Previous: 105},
		model.Instrument{Ticker: "XYZ", Threshold: 90})

	report, err := s.RunCheck(context.Background())
	if err != nil {
		t.Fatalf("run check: %v", err)
	}
	if !strings.Contains(report, "Account Balance:            $10,000.00") {
		t.Errorf("missing header\n%s", report)
	}
	if !strings.Contains(report, "\nBUY $") || !strings.Contains(report, "shares") {
		t.Errorf("expected buy recommendation\n%s", report)
	}

	if len(rec.runs) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(rec.runs))
	}
	run := rec.runs[0]
	if run.ID == "" || run.AccountBalance != 10000 || len(run.Results) != 1 {
		t.Errorf("unexpected run %+v", run)
	}
	if !run.Results[0].OK() || run.Results[0].Decision.Recommendation.Action != model.ActionBuy {
		t.Errorf("unexpected result %+v", run.Results[0])
	}
}

func TestRunCheck_ZeroTargetIsFatal(t *testing.T) {
	p := params()
	p.TargetAccountBalance = 0
	s, rec, _ := newScheduler(t, p, &collector.MockFetcher{Price: 95, Previous: 105},
		model.Instrument{Ticker: "XYZ", Threshold: 90})

	if _, err := s.RunCheck(context.Background()); !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if len(rec.runs) != 0 {
		t.Errorf("a failed run must not be recorded")
	}
}

func TestCheckTask_NotifiesOnlyOnBuy(t *testing.T) {
	s, _, snd := newScheduler(t, params(), &collector.MockFetcher{Price: 100, Previous: 100},
		model.Instrument{Ticker: "FLAT", Threshold: 1})
	s.checkTask()
	if len(snd.sent) != 0 {
		t.Errorf("hold-only run should not notify, sent %v", snd.sent)
	}

	s, _, snd = newScheduler(t, params(), &collector.MockFetcher{Price: 95, Previous: 105},
		model.Instrument{Ticker: "XYZ", Threshold: 90})
	s.checkTask()
	if len(snd.sent) != 1 || !strings.HasPrefix(snd.sent[0], "<pre>") {
		t.Errorf("expected one HTML report, got %v", snd.sent)
	}
}

func TestHandleCommand(t *testing.T) {
	s, _, _ := newScheduler(t, params(), &collector.MockFetcher{Price: 100, Previous: 100},
		model.Instrument{Ticker: "FLAT", Threshold: 1})
	ctx := context.Background()

	if got := s.HandleCommand(ctx, "/check"); !strings.Contains(got, "HOLD") {
		t.Errorf("/check: %q", got)
	}
	got := s.HandleCommand(ctx, "/params")
	if !strings.Contains(got, "Target balance: 5000.00") || !strings.Contains(got, "Data age threshold: 15m0s") {
		t.Errorf("/params: %q", got)
	}
	if strings.Contains(got, "demo") {
		t.Error("/params must not reveal the api key")
	}
	if got := s.HandleCommand(ctx, "hello"); !strings.Contains(got, "/check") {
		t.Errorf("help: %q", got)
	}
}

func TestRegister_InvalidCron(t *testing.T) {
	s, _, _ := newScheduler(t, params(), &collector.MockFetcher{Price: 1})
	if err := s.Register("not a cron"); err == nil {
		t.Fatal("expected error")
	}
	if err := s.Register("0 */15 9-16 * * 1-5"); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestCountBuys(t *testing.T) {
	buy := &model.Decision{Recommendation: model.Recommendation{Action: model.ActionBuy, Dollars: 10, Shares: 1}}
	hold := &model.Decision{Recommendation: model.Hold()}
	results := []model.Result{
		{Instrument: model.Instrument{Ticker: "A"}, Decision: buy},
		{Instrument: model.Instrument{Ticker: "B"}, Decision: hold},
		// a ticker named like the action must not count
		{Instrument: model.Instrument{Ticker: "BUY"}, Decision: hold},
		{Instrument: model.Instrument{Ticker: "C"}, Err: model.ErrDataUnavailable},
	}
	if got := CountBuys(results); got != 1 {
		t.Errorf("expected 1 buy, got %d", got)
	}
	if got := CountBuys(nil); got != 0 {
		t.Errorf("expected 0 buys, got %d", got)
	}
}

func TestCheck_ReturnsResults(t *testing.T) {
	s, _, _ := newScheduler(t, params(), &collector.MockFetcher{Price: 95, Previous: 105},
		model.Instrument{Ticker: "XYZ", Threshold: 90}, model.Instrument{Ticker: "ABC", Threshold: 1})
	run, err := s.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(run.Results) != 2 || CountBuys(run.Results) != 2 {
		t.Errorf("unexpected results %+v", run.Results)
	}
	if !strings.Contains(Report(run), "XYZ\n") {
		t.Errorf("report missing instrument\n%s", Report(run))
	}
}
