package engine

import (
	"time"

	"github.com/rustyeddy/swingops/market"
	"github.com/rustyeddy/swingops/profile"
	"github.com/rustyeddy/swingops/sizing"
)

// Position management parameters. The take-profit multiple scales with trend
// strength: clamp(2 + ADX/30) into [2.5, 4.5] ATRs above entry.
const (
	TrailATRMultiple = 2.0
	TPBaseMultiple   = 2.0
	TPADXDivisor     = 30.0
	TPMinMultiple    = 2.5
	TPMaxMultiple    = 4.5

	PartialTPFraction = 0.5
	MaxHoldDays       = 10
)

// PositionState is the lifecycle state of an open position.
type PositionState string

const (
	OpenFull     PositionState = "OPEN_FULL"
	OpenTrailing PositionState = "OPEN_TRAILING"
	Closed       PositionState = "CLOSED"
)

// Exit reasons recorded on the trade ledger.
const (
	ExitStop  = "STOP"
	ExitTP    = "TP"
	ExitTrail = "TRAIL"
	ExitTime  = "TIME"
)

// TakeProfitMultiple returns the ATR multiple for the take-profit level given
// trend strength at entry.
func TakeProfitMultiple(adx float64) float64 {
	m := TPBaseMultiple + adx/TPADXDivisor
	if m < TPMinMultiple {
		return TPMinMultiple
	}
	if m > TPMaxMultiple {
		return TPMaxMultiple
	}
	return m
}

// Position is a filled long holding managed bar by bar until it closes.
type Position struct {
	ID      string
	Asset   string
	Profile profile.AssetProfile
	State   PositionState

	Entry    float64
	EntryATR float64
	Stop     float64
	TP       float64
	TPMult   float64

	Size        float64 // remaining units
	InitialSize float64
	HighestHigh float64

	EntryDay    time.Time
	DaysHeld    int
	RealizedPL  float64
	Probability float64
	RiskAmount  float64
}

// NewPosition opens a position from an order fill. The hard stop sits two
// entry ATRs below the fill; the take-profit scales with ADX at signal time.
func NewPosition(id string, o *Order, fillPrice float64, day time.Time) *Position {
	mult := TakeProfitMultiple(o.ADX)
	return &Position{
		ID:          id,
		Asset:       o.Asset,
		Profile:     o.Profile,
		State:       OpenFull,
		Entry:       fillPrice,
		EntryATR:    o.ATR,
		Stop:        fillPrice - sizing.StopATRMultiple*o.ATR,
		TP:          fillPrice + mult*o.ATR,
		TPMult:      mult,
		Size:        o.Size,
		InitialSize: o.Size,
		HighestHigh: fillPrice,
		EntryDay:    day,
		Probability: o.Probability,
		RiskAmount:  o.RiskAmount,
	}
}

// Exit is one realized sale out of a position. Final means the position is
// now closed.
type Exit struct {
	Reason string
	Price  float64
	Size   float64
	Final  bool
}

// Advance runs one bar through the position and returns any exits in the
// order they trigger: hard stop, then take-profit, then trail, then the time
// stop at the close. The hard stop and the trail apply in both open states;
// the trail tracks the highest high since entry, not since the partial TP.
// Protective levels fill at the open when the bar gaps through them.
func (p *Position) Advance(bar market.Snapshot) ([]Exit, error) {
	if p.State == Closed {
		return nil, &StateViolation{ID: p.ID, From: string(p.State), Event: "advance"}
	}

	p.DaysHeld++
	var exits []Exit

	if bar.Low <= p.Stop {
		exits = append(exits, p.closeOut(ExitStop, gapFill(p.Stop, bar.Open)))
		return exits, nil
	}

	if p.State == OpenFull && bar.High >= p.TP {
		price := gapUpFill(p.TP, bar.Open)
		half := p.Size * PartialTPFraction
		p.RealizedPL += half * (price - p.Entry)
		p.Size -= half
		p.State = OpenTrailing
		exits = append(exits, Exit{Reason: ExitTP, Price: price, Size: half})
	}

	if bar.High > p.HighestHigh {
		p.HighestHigh = bar.High
	}
	trail := p.HighestHigh - TrailATRMultiple*p.EntryATR
	if bar.Low <= trail {
		exits = append(exits, p.closeOut(ExitTrail, gapFill(trail, bar.Open)))
		return exits, nil
	}

	if p.DaysHeld >= MaxHoldDays {
		exits = append(exits, p.closeOut(ExitTime, bar.Close))
	}
	return exits, nil
}

func (p *Position) closeOut(reason string, price float64) Exit {
	size := p.Size
	p.RealizedPL += size * (price - p.Entry)
	p.Size = 0
	p.State = Closed
	return Exit{Reason: reason, Price: price, Size: size, Final: true}
}

// gapFill returns the realistic fill for a protective sell level: the level
// itself, or the open when the bar already opened below it.
func gapFill(level, open float64) float64 {
	if open < level {
		return open
	}
	return level
}

// gapUpFill returns the fill for the take-profit: the level, or the open when
// the bar opened above it.
func gapUpFill(level, open float64) float64 {
	if open > level {
		return open
	}
	return level
}
