package alert

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/swingops/profile"
)

// SignalCard is the plain-text summary published when a trap order is
// placed: entry zone, stops, targets, size, and the probability that
// promoted the signal.
type SignalCard struct {
	Asset       string
	Class       profile.Class
	Probability float64
	EntryStop   float64
	EntryLimit  float64
	StopLoss    float64
	TakeProfit  float64
	TPMult      float64
	Size        float64
	RiskAmount  float64
	RiskPct     float64
	RewardRisk  float64
}

// TTLLabel describes how long the trap order stays working.
func (c SignalCard) TTLLabel() string {
	if c.Class.IsForex() {
		return "24 hours"
	}
	return "1 session"
}

// Format renders the card for the notification sink.
func (c SignalCard) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SIGNAL LONG %s (p=%.2f)\n", c.Asset, c.Probability)
	fmt.Fprintf(&b, "  trap entry: stop %.2f / limit %.2f\n", c.EntryStop, c.EntryLimit)
	fmt.Fprintf(&b, "  stop loss:  %.2f\n", c.StopLoss)
	fmt.Fprintf(&b, "  take profit: %.2f (%.2fxATR, close 50%%)\n", c.TakeProfit, c.TPMult)
	fmt.Fprintf(&b, "  trail: chandelier at HH - 2xATR\n")
	fmt.Fprintf(&b, "  size: %.2f units (%.2f risk = %.1f%%), R:R 1:%.1f\n",
		c.Size, c.RiskAmount, c.RiskPct*100, c.RewardRisk)
	fmt.Fprintf(&b, "  order valid: %s", c.TTLLabel())
	return b.String()
}
