package notifier

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"RoboInvestor/internal/model"

	"github.com/dustin/go-humanize"
)

// ReportHeader carries the run-wide values printed above the instrument blocks.
type ReportHeader struct {
	AccountBalance float64
	Params         model.Parameters
}

// FormatReport renders a plain-text table: the header block, then one block
// per instrument in the given order. Blocks are separated by blank lines.
func FormatReport(h ReportHeader, results []model.Result) string {
	var t table
	t.row("Checking stock prices...", "")
	t.sep()
	t.row("Account Balance:", dollars(h.AccountBalance))
	t.row("Target Balance:", dollars(h.Params.TargetAccountBalance))
	t.row("Aggression (0.0 - 1.0):", humanize.FormatFloat("#,###.##", h.Params.InvestmentAggression))
	t.row("Percentage Fall Threshold:", humanize.FormatFloat("#,###.##", h.Params.PercentageFallThreshold)+"%")
	t.sep()

	for _, r := range results {
		t.row(r.Instrument.Ticker, "")
		if !r.OK() {
			t.row("Threshold:", dollars(r.Instrument.Threshold))
			t.row("ERROR: "+reason(r.Err), "")
			t.sep()
			continue
		}
		d := r.Decision
		t.row("Current Price:", dollars(d.CurrentPrice.InexactFloat64()))
		t.row("Threshold:", dollars(r.Instrument.Threshold))
		t.row("Previous Close:", dollars(d.PreviousPrice.InexactFloat64()))
		t.row("Percentage Change:", d.PercentChange.StringFixed(2)+"%")
		t.row(Recommendation(d.Recommendation), "")
		t.sep()
	}
	return t.String()
}

// table is a two-column plain layout. Rows without a value span both
// columns and do not widen the label column.
type table struct {
	rows [][2]string
}

func (t *table) row(label, value string) { t.rows = append(t.rows, [2]string{label, value}) }

func (t *table) sep() { t.rows = append(t.rows, [2]string{}) }

func (t *table) String() string {
	width := 0
	for _, r := range t.rows {
		if r[1] != "" && len(r[0]) > width {
			width = len(r[0])
		}
	}
	var b strings.Builder
	for _, r := range t.rows {
		if r[1] == "" {
			b.WriteString(r[0])
		} else {
			fmt.Fprintf(&b, "%-*s  %s", width, r[0], r[1])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Recommendation renders "BUY $x --> n shares" or "HOLD".
func Recommendation(rec model.Recommendation) string {
	if rec.Action == model.ActionBuy {
		return fmt.Sprintf("BUY %s --> %d shares", dollars(rec.Dollars), rec.Shares)
	}
	return string(model.ActionHold)
}

// FormatTelegram wraps a plain report for the Telegram HTML parse mode.
func FormatTelegram(report string) string {
	return "<pre>" + html.EscapeString(report) + "</pre>"
}

func dollars(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// the ticker already heads the block
func reason(err error) string {
	if err == nil {
		return "no decision"
	}
	var ie *model.InstrumentError
	if errors.As(err, &ie) {
		return ie.Err.Error()
	}
	return err.Error()
}
