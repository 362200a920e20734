// Package guard evaluates the layered hard guards that every candidate must
// clear before scoring. Evaluation is a pure function of (snapshot, profile,
// market context, open-position count): identical inputs always produce the
// identical report.
package guard

import (
	"fmt"
	"math"

	"github.com/rustyeddy/swingops/market"
	"github.com/rustyeddy/swingops/profile"
)

// Literal guard thresholds.
const (
	VIXPanicLevel  = 30.0
	ExposureCap    = 4
	ADXTrendFloor  = 20.0
	EventMinDays   = 7
	PullbackMaxPct = 0.05
)

// Guard names, in fixed reporting order: market-level, portfolio-level,
// per-asset. The order is for deterministic reporting only; eligibility is
// the AND of the non-skipped verdicts.
const (
	MacroGate    = "macro_gate"
	PanicGuard   = "panic_guard"
	ExposureGate = "exposure_cap"
	TrendGate    = "trend_gate"
	EventGuard   = "event_guard"
	PullbackZone = "pullback_zone"
)

// Status is a single guard outcome. A skipped guard never blocks
// eligibility and is never reported as pass/fail.
type Status string

const (
	Pass    Status = "PASS"
	Fail    Status = "FAIL"
	Skipped Status = "SKIPPED"
)

// Verdict is one guard's outcome with its reason. Stale marks a FAIL that
// was forced by the staleness override rather than the numeric test.
type Verdict struct {
	Guard  string
	Status Status
	Reason string
	Stale  bool
}

// Report lists every applicable guard's verdict for one asset on one day.
type Report struct {
	Asset    string
	Verdicts []Verdict
}

// Eligible reports whether every non-skipped guard passed.
func (r Report) Eligible() bool {
	for _, v := range r.Verdicts {
		if v.Status == Fail {
			return false
		}
	}
	return true
}

// Failed returns the failing verdicts, in reporting order.
func (r Report) Failed() []Verdict {
	var out []Verdict
	for _, v := range r.Verdicts {
		if v.Status == Fail {
			out = append(out, v)
		}
	}
	return out
}

// StaleVerdicts returns the verdicts that were forced to FAIL by staleness,
// so the caller can raise stale-data alerts.
func (r Report) StaleVerdicts() []Verdict {
	var out []Verdict
	for _, v := range r.Verdicts {
		if v.Stale {
			out = append(out, v)
		}
	}
	return out
}

// Inputs is everything guard evaluation reads. OpenPositions is sampled once
// per day and shared across all candidates evaluated that day.
type Inputs struct {
	Snapshot      market.Snapshot
	Profile       profile.AssetProfile
	Context       market.Context
	OpenPositions int
}

// Evaluate runs every guard for one asset and returns the full report.
func Evaluate(in Inputs) Report {
	r := Report{Asset: in.Snapshot.Asset}
	r.Verdicts = append(r.Verdicts,
		macroGate(in),
		panicGuard(in),
		exposureCap(in),
		trendGate(in),
		eventGuard(in),
		pullbackZone(in),
	)
	return r
}

func pass(guard string, reason string) Verdict {
	return Verdict{Guard: guard, Status: Pass, Reason: reason}
}

func fail(guard string, reason string) Verdict {
	return Verdict{Guard: guard, Status: Fail, Reason: reason}
}

func skipped(guard string, reason string) Verdict {
	return Verdict{Guard: guard, Status: Skipped, Reason: reason}
}

func staleFail(guard string, s market.Series, asOf Inputs) Verdict {
	age := s.AgeHours(asOf.Context.Date)
	reason := fmt.Sprintf("%s data stale (%.1fh old)", s.Ticker, age)
	if math.IsNaN(age) {
		reason = fmt.Sprintf("%s data never refreshed", s.Ticker)
	}
	return Verdict{Guard: guard, Status: Fail, Reason: reason, Stale: true}
}

func macroGate(in Inputs) Verdict {
	if in.Profile.RegimeDir == profile.Any {
		return skipped(MacroGate, "regime direction ANY")
	}
	s, ok := in.Context.RegimeSeries(in.Profile.RegimeIndex)
	if !ok || !s.Ok() {
		return fail(MacroGate, fmt.Sprintf("regime index %s unavailable", in.Profile.RegimeIndex))
	}
	if s.StaleAt(in.Context.Date) {
		return staleFail(MacroGate, s, in)
	}
	if math.IsNaN(s.SMA200) {
		return fail(MacroGate, fmt.Sprintf("%s has no 200-day SMA yet", s.Ticker))
	}
	switch in.Profile.RegimeDir {
	case profile.Bull:
		if s.Close > s.SMA200 {
			return pass(MacroGate, fmt.Sprintf("%s %.2f above SMA200 %.2f", s.Ticker, s.Close, s.SMA200))
		}
		return fail(MacroGate, fmt.Sprintf("%s %.2f at or below SMA200 %.2f", s.Ticker, s.Close, s.SMA200))
	default: // Bear
		if s.Close < s.SMA200 {
			return pass(MacroGate, fmt.Sprintf("%s %.2f below SMA200 %.2f", s.Ticker, s.Close, s.SMA200))
		}
		return fail(MacroGate, fmt.Sprintf("%s %.2f at or above SMA200 %.2f", s.Ticker, s.Close, s.SMA200))
	}
}

func panicGuard(in Inputs) Verdict {
	if !in.Profile.VIXGuard {
		return skipped(PanicGuard, "vix guard disabled")
	}
	s := in.Context.VIX
	if !s.Ok() {
		return fail(PanicGuard, "vix unavailable")
	}
	if s.StaleAt(in.Context.Date) {
		return staleFail(PanicGuard, s, in)
	}
	if s.Close < VIXPanicLevel {
		return pass(PanicGuard, fmt.Sprintf("vix %.2f below %.0f", s.Close, VIXPanicLevel))
	}
	return fail(PanicGuard, fmt.Sprintf("vix %.2f at or above %.0f", s.Close, VIXPanicLevel))
}

func exposureCap(in Inputs) Verdict {
	if in.OpenPositions < ExposureCap {
		return pass(ExposureGate, fmt.Sprintf("%d of %d slots used", in.OpenPositions, ExposureCap))
	}
	return fail(ExposureGate, fmt.Sprintf("exposure cap reached (%d open)", in.OpenPositions))
}

func trendGate(in Inputs) Verdict {
	adx := in.Snapshot.ADX14
	if adx > ADXTrendFloor {
		return pass(TrendGate, fmt.Sprintf("adx %.1f above %.0f", adx, ADXTrendFloor))
	}
	return fail(TrendGate, fmt.Sprintf("adx %.1f at or below %.0f", adx, ADXTrendFloor))
}

func eventGuard(in Inputs) Verdict {
	if !in.Profile.EventGuard {
		return skipped(EventGuard, "event guard disabled")
	}
	d := in.Snapshot.DaysToEvent
	if d < 0 {
		return fail(EventGuard, "event calendar unavailable")
	}
	if d >= EventMinDays {
		return pass(EventGuard, fmt.Sprintf("%d days to next event", d))
	}
	return fail(EventGuard, fmt.Sprintf("event in %d days (need >= %d)", d, EventMinDays))
}

func pullbackZone(in Inputs) Verdict {
	ema := in.Snapshot.EMA8
	if ema <= 0 || math.IsNaN(ema) {
		return fail(PullbackZone, "ema8 unavailable")
	}
	ext := (in.Snapshot.Close - ema) / ema
	if ext <= PullbackMaxPct {
		return pass(PullbackZone, fmt.Sprintf("%.1f%% above ema8", ext*100))
	}
	return fail(PullbackZone, fmt.Sprintf("%.1f%% above ema8 (max %.0f%%)", ext*100, PullbackMaxPct*100))
}
