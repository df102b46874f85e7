package recorder

import (
	"time"

	"RoboInvestor/internal/model"
)

// Run is one evaluation batch.
type Run struct {
	ID             string
	StartedAt      time.Time
	AccountBalance float64
	Parameters     model.Parameters
	Results        []model.Result
}

// Recorder persists decision history for later analysis.
type Recorder interface {
	RecordRun(run *Run) error
	Close() error
}
