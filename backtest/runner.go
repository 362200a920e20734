// Package backtest replays candle history through the live decision engine,
// one trading day at a time, and reports the run's ledger and statistics.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/swingops/alert"
	"github.com/rustyeddy/swingops/arbiter"
	"github.com/rustyeddy/swingops/engine"
	"github.com/rustyeddy/swingops/features"
	"github.com/rustyeddy/swingops/journal"
	"github.com/rustyeddy/swingops/market"
	"github.com/rustyeddy/swingops/profile"
	"github.com/rustyeddy/swingops/score"
)

// Runner drives one historical run. It owns an in-memory copy of the ledger
// for statistics; an external journal, when given, receives the same records.
type Runner struct {
	engine   *engine.Engine
	resolver *profile.Resolver
	data     Dataset
	ledger   *journal.Memory
	alerts   *alert.Collector
	log      zerolog.Logger
}

// NewRunner wires a simulated engine over the dataset. extern may be nil;
// when set, every ledger record is teed to it as well.
func NewRunner(r *profile.Resolver, s *score.Adapter, veto arbiter.Veto, extern journal.Journal, sink alert.Sink, startingCash float64, data Dataset, log zerolog.Logger) *Runner {
	ledger := journal.NewMemory()
	var j journal.Journal = ledger
	if extern != nil {
		j = journal.TeeJournal{extern, ledger}
	}

	collector := &alert.Collector{}
	var a alert.Sink = collector
	if sink != nil {
		a = alert.Tee{sink, collector}
	}

	return &Runner{
		engine:   engine.New(r, s, veto, j, a, startingCash, log),
		resolver: r,
		data:     data,
		ledger:   ledger,
		alerts:   collector,
		log:      log,
	}
}

// Result is the end-of-run report.
type Result struct {
	Start, End time.Time
	Days       int

	FinalBalance float64
	FinalEquity  float64
	Trades       int
	Wins         int
	Losses       int

	ByClass     []ClassStats
	Calibration []ReliabilityBin
	EquityCurve []journal.EquitySnapshot
	Alerts      []alert.Event
}

// Run replays the most recent MaxHistory trading days in order. Each day
// sees only data dated on or before it; the engine's phase ordering keeps
// same-day signals from filling on their own bar.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	days := RunWindow(r.data.TradingDays())
	if len(days) == 0 {
		return Result{}, errors.New("backtest: dataset has no trading days")
	}

	ran := 0
	for _, d := range days {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		day, skip := r.buildDay(d)
		if skip {
			continue
		}
		if err := r.engine.ProcessDay(ctx, day); err != nil {
			return Result{}, fmt.Errorf("backtest: day %s: %w", DayKey(d), err)
		}
		ran++
	}
	if ran == 0 {
		return Result{}, errors.New("backtest: no day had enough history to evaluate")
	}

	return r.report(days[0], days[len(days)-1], ran), nil
}

// buildDay assembles one day's input. Assets whose history is still too
// short are left out; the day is skipped entirely when no asset resolves.
func (r *Runner) buildDay(d time.Time) (engine.Day, bool) {
	day := engine.Day{
		Date:      d,
		Context:   r.buildContext(d),
		Snapshots: make(map[string]market.Snapshot),
		Features:  make(map[string][]float64),
	}

	for _, asset := range r.resolver.Assets() {
		p, err := r.resolver.Resolve(asset)
		if err != nil {
			continue // the engine reports bad profiles itself
		}
		hist, ok := historyThrough(r.data.Assets[asset], d)
		if !ok {
			continue
		}
		bench, _ := historyThrough(r.data.Context[p.Benchmark], d)

		snap, err := features.Build(asset, hist, bench, p, r.daysToEvent(asset, d))
		if err != nil {
			r.log.Debug().Err(err).Str("asset", asset).Msg("snapshot unavailable")
			continue
		}
		day.Snapshots[asset] = snap
		day.Features[asset] = features.Vector(snap, p)
	}

	return day, len(day.Snapshots) == 0
}

func (r *Runner) buildContext(d time.Time) market.Context {
	mc := market.Context{
		Date:       d,
		Regime:     make(map[string]market.Series),
		Benchmarks: make(map[string]market.Series),
	}
	if hist, ok := historyThrough(r.data.Context["VIX"], d); ok {
		mc.VIX = features.BuildSeries("VIX", hist)
	}
	for _, asset := range r.resolver.Assets() {
		p, err := r.resolver.Resolve(asset)
		if err != nil {
			continue
		}
		if p.RegimeIndex != "" {
			if _, done := mc.Regime[p.RegimeIndex]; !done {
				if hist, ok := historyThrough(r.data.Context[p.RegimeIndex], d); ok {
					mc.Regime[p.RegimeIndex] = features.BuildSeries(p.RegimeIndex, hist)
				}
			}
		}
		if p.Benchmark != "" {
			if _, done := mc.Benchmarks[p.Benchmark]; !done {
				if hist, ok := historyThrough(r.data.Context[p.Benchmark], d); ok {
					mc.Benchmarks[p.Benchmark] = features.BuildSeries(p.Benchmark, hist)
				}
			}
		}
	}
	return mc
}

func (r *Runner) daysToEvent(asset string, d time.Time) int {
	cal, ok := r.data.Events[asset]
	if !ok {
		return -1
	}
	days, ok := cal[DayKey(d)]
	if !ok {
		return -1
	}
	return days
}

func (r *Runner) report(start, end time.Time, days int) Result {
	trades := r.ledger.Trades()
	curve := r.ledger.Equity()

	res := Result{
		Start:       start,
		End:         end,
		Days:        days,
		Trades:      len(trades),
		ByClass:     ComputeClassStats(trades),
		Calibration: Calibration(trades, 5),
		EquityCurve: curve,
		Alerts:      r.alerts.Events(),
	}
	for _, t := range trades {
		switch {
		case t.RealizedPL > 0:
			res.Wins++
		case t.RealizedPL < 0:
			res.Losses++
		}
	}
	if len(curve) > 0 {
		last := curve[len(curve)-1]
		res.FinalBalance = last.Balance
		res.FinalEquity = last.Equity
	}
	return res
}
