// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	trades      *csv.Writer
	transitions *csv.Writer
	equity      *csv.Writer
	files       []*os.File
}

func NewCSV(tradesPath, transitionsPath, equityPath string) (*CSVJournal, error) {
	j := &CSVJournal{}

	for _, open := range []struct {
		path   string
		dest   **csv.Writer
		header []string
	}{
		{tradesPath, &j.trades, []string{
			"trade_id", "asset", "class", "group", "probability", "size",
			"entry_price", "exit_price", "entry_day", "exit_day", "days_held",
			"realized_pl", "risk_amount", "reason"}},
		{transitionsPath, &j.transitions, []string{"id", "asset", "day", "kind", "detail"}},
		{equityPath, &j.equity, []string{"day", "balance", "equity", "open_positions"}},
	} {
		f, err := os.Create(open.path)
		if err != nil {
			j.Close()
			return nil, err
		}
		j.files = append(j.files, f)
		w := csv.NewWriter(f)
		if err := w.Write(open.header); err != nil {
			j.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			j.Close()
			return nil, err
		}
		*open.dest = w
	}

	return j, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.Asset,
		t.Class,
		t.Group,
		f(t.Probability),
		f(t.Size),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.EntryDay.Format(time.RFC3339),
		t.ExitDay.Format(time.RFC3339),
		strconv.Itoa(t.DaysHeld),
		f(t.RealizedPL),
		f(t.RiskAmount),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordTransition(tr Transition) error {
	err := j.transitions.Write([]string{
		tr.ID,
		tr.Asset,
		tr.Day.Format(time.RFC3339),
		tr.Kind,
		tr.Detail,
	})
	if err != nil {
		return err
	}
	j.transitions.Flush()
	return j.transitions.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.Day.Format(time.RFC3339),
		f(e.Balance),
		f(e.Equity),
		strconv.Itoa(e.OpenPositions),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	var first error
	for _, w := range []*csv.Writer{j.trades, j.transitions, j.equity} {
		if w == nil {
			continue
		}
		w.Flush()
		if err := w.Error(); err != nil && first == nil {
			first = err
		}
	}
	for _, f := range j.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
