package journal

import "sync"

// Memory is an in-process journal. The simulator uses it to accumulate the
// run's ledger for statistics; tests use it to assert on recorded events.
type Memory struct {
	mu          sync.Mutex
	trades      []TradeRecord
	transitions []Transition
	equity      []EquitySnapshot
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordTrade(t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

func (m *Memory) RecordTransition(tr Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, tr)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, e)
	return nil
}

func (m *Memory) Trades() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRecord, len(m.trades))
	copy(out, m.trades)
	return out
}

func (m *Memory) Transitions() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}

func (m *Memory) Equity() []EquitySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EquitySnapshot, len(m.equity))
	copy(out, m.equity)
	return out
}

func (m *Memory) Close() error { return nil }

// Tee forwards every record to each journal; the first error wins but all
// journals still see the record.
type TeeJournal []Journal

func (t TeeJournal) RecordTrade(r TradeRecord) error {
	var first error
	for _, j := range t {
		if err := j.RecordTrade(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t TeeJournal) RecordTransition(r Transition) error {
	var first error
	for _, j := range t {
		if err := j.RecordTransition(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t TeeJournal) RecordEquity(r EquitySnapshot) error {
	var first error
	for _, j := range t {
		if err := j.RecordEquity(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t TeeJournal) Close() error {
	var first error
	for _, j := range t {
		if err := j.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
