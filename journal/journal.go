// journal/journal.go
package journal

import "time"

// TradeRecord is one closed trade (full or partial close), keyed by asset id
// and entry day. Probability and risk figures ride along so the simulator
// can compute expectancy and calibration per asset class.
type TradeRecord struct {
	TradeID     string
	Asset       string
	Class       string
	Group       string
	Probability float64
	Size        float64
	EntryPrice  float64
	ExitPrice   float64
	EntryDay    time.Time
	ExitDay     time.Time
	DaysHeld    int
	RealizedPL  float64
	RiskAmount  float64
	Reason      string // exit reason: TP, STOP, TRAIL, TIME
}

// Transition is one order/position lifecycle event, append-only.
type Transition struct {
	ID     string
	Asset  string
	Day    time.Time
	Kind   string
	Detail string
}

// Lifecycle transition kinds.
const (
	OrderPlaced    = "ORDER_PLACED"
	OrderFilled    = "ORDER_FILLED"
	OrderExpired   = "ORDER_EXPIRED"
	OrderCancelled = "ORDER_CANCELLED"
	PartialTP      = "PARTIAL_TP"
	PositionClosed = "POSITION_CLOSED"
)

// EquitySnapshot is one point of the running equity curve.
type EquitySnapshot struct {
	Day           time.Time
	Balance       float64 // realized cash equity
	Equity        float64 // balance plus open positions marked at the close
	OpenPositions int
}

// Journal is the append-only ledger shared by the live engine (audit) and
// the simulator (statistics).
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordTransition(Transition) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
