package backtest

import (
	"sort"

	"github.com/rustyeddy/swingops/journal"
)

// ClassStats summarizes the closed trades of one asset class.
type ClassStats struct {
	Class       string
	Trades      int
	Wins        int
	Losses      int
	WinRate     float64
	AvgHoldDays float64
	TotalPL     float64
	Expectancy  float64 // mean P/L per unit of risk taken
}

// ComputeClassStats aggregates the ledger per asset class, sorted by class
// name.
func ComputeClassStats(trades []journal.TradeRecord) []ClassStats {
	byClass := make(map[string]*ClassStats)
	riskSum := make(map[string]float64)

	for _, t := range trades {
		s, ok := byClass[t.Class]
		if !ok {
			s = &ClassStats{Class: t.Class}
			byClass[t.Class] = s
		}
		s.Trades++
		s.TotalPL += t.RealizedPL
		s.AvgHoldDays += float64(t.DaysHeld)
		riskSum[t.Class] += t.RiskAmount
		switch {
		case t.RealizedPL > 0:
			s.Wins++
		case t.RealizedPL < 0:
			s.Losses++
		}
	}

	out := make([]ClassStats, 0, len(byClass))
	for class, s := range byClass {
		n := float64(s.Trades)
		s.WinRate = float64(s.Wins) / n
		s.AvgHoldDays /= n
		if risk := riskSum[class]; risk > 0 {
			s.Expectancy = s.TotalPL / risk
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

// ReliabilityBin is one bucket of the model-calibration report: trades whose
// entry probability fell inside [Lo, Hi), with the win rate they realized.
type ReliabilityBin struct {
	Lo, Hi  float64
	Trades  int
	Wins    int
	AvgProb float64
	WinRate float64
}

// Calibration buckets the ledger by entry probability so a run can show how
// the model's confidence tracked realized outcomes.
func Calibration(trades []journal.TradeRecord, bins int) []ReliabilityBin {
	if bins <= 0 {
		bins = 5
	}
	width := 1.0 / float64(bins)
	out := make([]ReliabilityBin, bins)
	for i := range out {
		out[i].Lo = float64(i) * width
		out[i].Hi = out[i].Lo + width
	}

	for _, t := range trades {
		i := int(t.Probability / width)
		if i >= bins {
			i = bins - 1
		}
		b := &out[i]
		b.Trades++
		b.AvgProb += t.Probability
		if t.RealizedPL > 0 {
			b.Wins++
		}
	}

	for i := range out {
		if out[i].Trades == 0 {
			continue
		}
		n := float64(out[i].Trades)
		out[i].AvgProb /= n
		out[i].WinRate = float64(out[i].Wins) / n
	}
	return out
}
