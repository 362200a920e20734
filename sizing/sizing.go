// Package sizing computes order quantity under the dual-constraint formula:
// risk a fixed fraction of equity against a 2xATR stop, but never let a
// single position exceed the concentration cap of the portfolio.
package sizing

import (
	"fmt"
	"math"
)

const (
	// RiskPerTradePct is the equity fraction risked against the stop.
	RiskPerTradePct = 0.02
	// MaxPositionPct caps one position's notional as a fraction of equity.
	MaxPositionPct = 0.15
	// StopATRMultiple is the stop distance in ATRs; risk per unit is
	// StopATRMultiple x ATR.
	StopATRMultiple = 2.0
)

// Inputs for one sizing calculation. Entry is the expected fill (the trap
// order's stop price).
type Inputs struct {
	Equity float64
	ATR14  float64
	Entry  float64
}

// Result carries the final size and both operands, plus the per-trade risk
// figures recorded in the ledger and on the signal card.
type Result struct {
	Size       float64
	ATRSize    float64 // risk-budget constraint
	CapSize    float64 // concentration constraint
	RiskAmount float64 // Size x StopATRMultiple x ATR
	RiskPct    float64 // RiskAmount / Equity
}

// Error is a sizing failure; no order is placed.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "sizing: " + e.Reason
}

// Calculate sizes a position. It fails when equity or ATR is non-positive;
// the caller must not fall back to a default size.
func Calculate(in Inputs) (Result, error) {
	if in.Equity <= 0 || math.IsNaN(in.Equity) {
		return Result{}, &Error{Reason: fmt.Sprintf("equity must be positive, got %v", in.Equity)}
	}
	if in.ATR14 <= 0 || math.IsNaN(in.ATR14) {
		return Result{}, &Error{Reason: fmt.Sprintf("atr must be positive, got %v", in.ATR14)}
	}
	if in.Entry <= 0 || math.IsNaN(in.Entry) {
		return Result{}, &Error{Reason: fmt.Sprintf("entry price must be positive, got %v", in.Entry)}
	}

	riskPerUnit := StopATRMultiple * in.ATR14
	atrSize := (in.Equity * RiskPerTradePct) / riskPerUnit
	capSize := (in.Equity * MaxPositionPct) / in.Entry
	size := math.Min(atrSize, capSize)

	return Result{
		Size:       size,
		ATRSize:    atrSize,
		CapSize:    capSize,
		RiskAmount: size * riskPerUnit,
		RiskPct:    size * riskPerUnit / in.Equity,
	}, nil
}
