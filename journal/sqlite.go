package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, asset, class, grp, probability, size, entry_price, exit_price,
		 entry_day, exit_day, days_held, realized_pl, risk_amount, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Asset, t.Class, t.Group, t.Probability, t.Size,
		t.EntryPrice, t.ExitPrice, t.EntryDay, t.ExitDay, t.DaysHeld,
		t.RealizedPL, t.RiskAmount, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordTransition(tr Transition) error {
	_, err := j.db.Exec(`
		INSERT INTO transitions (id, asset, day, kind, detail)
		VALUES (?, ?, ?, ?, ?)`,
		tr.ID, tr.Asset, tr.Day, tr.Kind, tr.Detail,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (day, balance, equity, open_positions)
		VALUES (?, ?, ?, ?)`,
		e.Day, e.Balance, e.Equity, e.OpenPositions,
	)
	return err
}

// ListTrades returns closed trades in entry-day order, for audit tooling.
func (j *SQLiteJournal) ListTrades() ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, asset, class, grp, probability, size, entry_price,
		       exit_price, entry_day, exit_day, days_held, realized_pl,
		       risk_amount, reason
		FROM trades ORDER BY entry_day, asset`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var entry, exit time.Time
		if err := rows.Scan(&t.TradeID, &t.Asset, &t.Class, &t.Group,
			&t.Probability, &t.Size, &t.EntryPrice, &t.ExitPrice,
			&entry, &exit, &t.DaysHeld, &t.RealizedPL,
			&t.RiskAmount, &t.Reason); err != nil {
			return nil, err
		}
		t.EntryDay, t.ExitDay = entry, exit
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransitions returns lifecycle events for one asset in day order.
func (j *SQLiteJournal) ListTransitions(asset string) ([]Transition, error) {
	rows, err := j.db.Query(`
		SELECT id, asset, day, kind, detail
		FROM transitions WHERE asset = ? ORDER BY day, id`, asset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var tr Transition
		if err := rows.Scan(&tr.ID, &tr.Asset, &tr.Day, &tr.Kind, &tr.Detail); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
