package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RoboInvestor/internal/account"
	"RoboInvestor/internal/engine"
	"RoboInvestor/internal/model"
	"RoboInvestor/internal/notifier"
	"RoboInvestor/internal/recorder"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// InstrumentLister supplies the instruments to evaluate, in configured order.
type InstrumentLister interface {
	List(ctx context.Context) ([]model.Instrument, error)
}

// Sender delivers a formatted message. TelegramNotifier implements it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs price checks on a cron schedule and on demand.
type Scheduler struct {
	Cron        *cron.Cron
	Engine      *engine.Engine
	Account     *account.Manager
	Instruments InstrumentLister
	Params      model.Parameters
	Recorder    recorder.Recorder
	Notifier    Sender // nil disables notifications
	Ctx         context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, eng *engine.Engine, am *account.Manager, instruments InstrumentLister, params model.Parameters, rec recorder.Recorder, n Sender) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Engine:      eng,
		Account:     am,
		Instruments: instruments,
		Params:      params,
		Recorder:    rec,
		Notifier:    n,
		Ctx:         ctx,
	}
}

// Register adds the periodic check.
func (s *Scheduler) Register(checkCron string) error {
	if _, err := s.Cron.AddFunc(checkCron, s.checkTask); err != nil {
		return fmt.Errorf("register check task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running check to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// Check evaluates every registered instrument once and records the run.
// Errors are fatal to the whole run; per-instrument failures are in run.Results.
func (s *Scheduler) Check(ctx context.Context) (*recorder.Run, error) {
	instruments, err := s.Instruments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}

	run := &recorder.Run{
		ID:             uuid.NewString(),
		StartedAt:      time.Now(),
		AccountBalance: s.Account.Balance(),
		Parameters:     s.Params,
	}
	log.Info().Str("run_id", run.ID).Int("instruments", len(instruments)).Float64("balance", run.AccountBalance).Msg("checking stock prices")

	run.Results, err = s.Engine.Evaluate(ctx, s.Params, instruments, run.AccountBalance)
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordRun(run); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("record run")
	}
	return run, nil
}

// RunCheck runs Check and returns the plain-text report.
func (s *Scheduler) RunCheck(ctx context.Context) (string, error) {
	run, err := s.Check(ctx)
	if err != nil {
		return "", err
	}
	return Report(run), nil
}

// Report renders a run as the plain-text report.
func Report(run *recorder.Run) string {
	return notifier.FormatReport(notifier.ReportHeader{
		AccountBalance: run.AccountBalance,
		Params:         run.Parameters,
	}, run.Results)
}

func (s *Scheduler) checkTask() {
	log.Info().Msg("running scheduled check")
	run, err := s.Check(s.Ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled check")
		s.trySend(fmt.Sprintf("❌ price check failed: %v", err))
		return
	}
	if CountBuys(run.Results) > 0 {
		s.trySend(notifier.FormatTelegram(Report(run)))
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/check":
		report, err := s.RunCheck(ctx)
		if err != nil {
			return fmt.Sprintf("❌ price check failed: %v", err)
		}
		return notifier.FormatTelegram(report)
	case "/params":
		return FormatParams(s.Params, s.Account.GetState())
	default:
		return "Available commands:\n• /check\n• /params"
	}
}

// FormatParams renders the active parameters and account state. The API key is never shown.
func FormatParams(p model.Parameters, st model.AccountState) string {
	var b strings.Builder
	b.WriteString("<b>Parameters</b>\n\n")
	fmt.Fprintf(&b, "Account balance: %.2f\n", st.Balance)
	fmt.Fprintf(&b, "Target balance: %.2f\n", p.TargetAccountBalance)
	fmt.Fprintf(&b, "Data age threshold: %s\n", p.ThresholdDataAge)
	fmt.Fprintf(&b, "Aggression: %.2f\n", p.InvestmentAggression)
	fmt.Fprintf(&b, "Fall threshold: %.2f%%\n", p.PercentageFallThreshold)
	if !st.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "Balance updated: %s\n", st.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

// CountBuys returns how many results recommend a buy.
func CountBuys(results []model.Result) int {
	n := 0
	for _, r := range results {
		if r.OK() && r.Decision.Recommendation.Action == model.ActionBuy {
			n++
		}
	}
	return n
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
