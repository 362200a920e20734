package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/swingops/alert"
	"github.com/rustyeddy/swingops/arbiter"
	"github.com/rustyeddy/swingops/guard"
	"github.com/rustyeddy/swingops/internal/id"
	"github.com/rustyeddy/swingops/internal/metrics"
	"github.com/rustyeddy/swingops/journal"
	"github.com/rustyeddy/swingops/market"
	"github.com/rustyeddy/swingops/profile"
	"github.com/rustyeddy/swingops/score"
	"github.com/rustyeddy/swingops/sizing"
)

// Day is one trading day's complete input: the shared market context plus a
// snapshot and feature vector per asset that has data for the day.
type Day struct {
	Date      time.Time
	Context   market.Context
	Snapshots map[string]market.Snapshot
	Features  map[string][]float64
}

// Engine runs the daily decision cycle: manage exits, evaluate candidates,
// arbitrate, place trap orders, then attempt fills for orders carried in
// from earlier days.
type Engine struct {
	resolver  *profile.Resolver
	scorer    *score.Adapter
	veto      arbiter.Veto
	journal   journal.Journal
	alerts    alert.Sink
	portfolio *Portfolio
	orders    map[string]*Order
	log       zerolog.Logger
}

func New(r *profile.Resolver, s *score.Adapter, v arbiter.Veto, j journal.Journal, a alert.Sink, startingCash float64, log zerolog.Logger) *Engine {
	return &Engine{
		resolver:  r,
		scorer:    s,
		veto:      v,
		journal:   j,
		alerts:    a,
		portfolio: NewPortfolio(startingCash),
		orders:    make(map[string]*Order),
		log:       log,
	}
}

// Portfolio exposes the book for reporting.
func (e *Engine) Portfolio() *Portfolio { return e.portfolio }

// PendingOrders returns the assets with a working trap order.
func (e *Engine) PendingOrders() []*Order {
	out := make([]*Order, 0, len(e.orders))
	for _, o := range e.orders {
		out = append(out, o)
	}
	return out
}

// ProcessDay runs one full day. The phases are strictly ordered so no
// decision reads state that the same day's later phases produce: exits
// first, then evaluation and order placement against the post-exit book,
// then fills for orders placed on earlier days.
func (e *Engine) ProcessDay(ctx context.Context, day Day) error {
	e.reportStaleContext(day)

	if err := e.processExits(day); err != nil {
		return err
	}

	cands, err := e.evaluate(ctx, day)
	if err != nil {
		return err
	}

	outcome := arbiter.Decide(ctx, cands, e.portfolio, e.veto)
	for _, r := range outcome.Rejected {
		e.log.Debug().Str("asset", r.Asset).Str("reason", r.Reason).Msg("candidate rejected")
	}

	closes := e.closingMarks(day)
	for _, c := range outcome.Selected {
		e.placeOrder(day, c, e.portfolio.Equity(closes))
	}

	if err := e.processFills(day); err != nil {
		return err
	}

	return e.journal.RecordEquity(journal.EquitySnapshot{
		Day:           day.Date,
		Balance:       e.portfolio.Balance(),
		Equity:        e.portfolio.Equity(closes),
		OpenPositions: e.portfolio.OpenCount(),
	})
}

// reportStaleContext publishes one aggregated stale-data report when any
// market-level series the day carries is past its freshness window. The
// guards independently force their own FAILs off the same staleness.
func (e *Engine) reportStaleContext(day Day) {
	var stale []market.Series
	add := func(s market.Series) {
		if s.Ticker != "" && s.StaleAt(day.Date) {
			stale = append(stale, s)
		}
	}
	add(day.Context.VIX)
	for _, ticker := range sortedTickers(day.Context.Regime) {
		add(day.Context.Regime[ticker])
	}
	for _, ticker := range sortedTickers(day.Context.Benchmarks) {
		add(day.Context.Benchmarks[ticker])
	}
	if len(stale) == 0 {
		return
	}
	e.alerts.Publish(alert.Event{
		Kind: alert.KindStaleData, Day: day.Date,
		Message: alert.StaleReport(day.Date, stale),
	})
}

func sortedTickers(series map[string]market.Series) []string {
	out := make([]string, 0, len(series))
	for ticker := range series {
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out
}

// processExits advances every open position through the day's bar and books
// whatever closed. A position whose bar is missing or malformed is held and
// reported; it never advances on data it cannot trust.
func (e *Engine) processExits(day Day) error {
	for _, pos := range e.portfolio.Positions() {
		bar, ok := e.usableBar(day, pos.Asset, "open position")
		if !ok {
			continue
		}
		exits, err := pos.Advance(bar)
		if err != nil {
			e.log.Error().Err(err).Str("asset", pos.Asset).Msg("position advance refused")
			e.alerts.Publish(alert.Event{Kind: alert.KindLifecycle, Asset: pos.Asset, Day: day.Date, Message: err.Error()})
			continue
		}
		for _, x := range exits {
			e.portfolio.Credit(x.Size * x.Price)
			if !x.Final {
				e.record(journal.Transition{
					ID: id.New(), Asset: pos.Asset, Day: day.Date, Kind: journal.PartialTP,
					Detail: detailf("sold %.2f at %.2f", x.Size, x.Price),
				})
				continue
			}
			e.portfolio.Remove(pos.Asset)
			metrics.TradesClosed.WithLabelValues(pos.Asset, x.Reason).Inc()
			e.record(journal.Transition{
				ID: id.New(), Asset: pos.Asset, Day: day.Date, Kind: journal.PositionClosed,
				Detail: detailf("%s at %.2f", x.Reason, x.Price),
			})
			if err := e.journal.RecordTrade(journal.TradeRecord{
				TradeID:     pos.ID,
				Asset:       pos.Asset,
				Class:       string(pos.Profile.Class),
				Group:       pos.Profile.Group,
				Probability: pos.Probability,
				Size:        pos.InitialSize,
				EntryPrice:  pos.Entry,
				ExitPrice:   x.Price,
				EntryDay:    pos.EntryDay,
				ExitDay:     day.Date,
				DaysHeld:    pos.DaysHeld,
				RealizedPL:  pos.RealizedPL,
				RiskAmount:  pos.RiskAmount,
				Reason:      x.Reason,
			}); err != nil {
				return err
			}
			e.alerts.Publish(alert.Event{
				Kind: alert.KindLifecycle, Asset: pos.Asset, Day: day.Date,
				Message: detailf("closed %s at %.2f, pl %.2f", x.Reason, x.Price, pos.RealizedPL),
			})
		}
	}
	return nil
}

// evaluate runs guards and scoring for every asset without a position or a
// working order. Assets are evaluated concurrently; every per-asset problem
// is isolated to that asset and the cycle continues.
func (e *Engine) evaluate(ctx context.Context, day Day) ([]arbiter.Candidate, error) {
	openCount := e.portfolio.OpenCount()

	var mu sync.Mutex
	var cands []arbiter.Candidate

	g, ctx := errgroup.WithContext(ctx)
	for _, asset := range e.resolver.Assets() {
		if _, held := e.portfolio.Position(asset); held {
			continue
		}
		if _, working := e.orders[asset]; working {
			continue
		}

		asset := asset
		g.Go(func() error {
			c, ok := e.evaluateAsset(ctx, day, asset, openCount)
			if ok {
				mu.Lock()
				cands = append(cands, c)
				mu.Unlock()
			}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cands, nil
}

func (e *Engine) evaluateAsset(ctx context.Context, day Day, asset string, openCount int) (arbiter.Candidate, bool) {
	p, err := e.resolver.Resolve(asset)
	if err != nil {
		e.alerts.Publish(alert.Event{Kind: alert.KindConfig, Asset: asset, Day: day.Date, Message: err.Error()})
		return arbiter.Candidate{}, false
	}

	snap, ok := day.Snapshots[asset]
	if !ok {
		return arbiter.Candidate{}, false
	}
	if err := snap.Validate(); err != nil {
		e.alerts.Publish(alert.Event{Kind: alert.KindDataQuality, Asset: asset, Day: day.Date, Message: err.Error()})
		return arbiter.Candidate{}, false
	}

	report := guard.Evaluate(guard.Inputs{
		Snapshot:      snap,
		Profile:       p,
		Context:       day.Context,
		OpenPositions: openCount,
	})
	if n := len(report.StaleVerdicts()); n > 0 {
		e.log.Debug().Str("asset", asset).Int("stale_guards", n).Msg("stale data forced guard failures")
	}
	if !report.Eligible() {
		for _, v := range report.Failed() {
			metrics.GuardFailures.WithLabelValues(v.Guard).Inc()
		}
		e.log.Debug().Str("asset", asset).Interface("failed", report.Failed()).Msg("guards blocked candidate")
		return arbiter.Candidate{}, false
	}

	res, err := e.scorer.Evaluate(ctx, p, day.Features[asset])
	if err != nil {
		if errors.Is(err, score.ErrUnavailable) {
			e.log.Warn().Err(err).Str("asset", asset).Msg("scoring unavailable, candidate excluded")
		} else {
			e.alerts.Publish(alert.Event{Kind: alert.KindConfig, Asset: asset, Day: day.Date, Message: err.Error()})
		}
		return arbiter.Candidate{}, false
	}
	if !res.Pass {
		return arbiter.Candidate{}, false
	}

	return arbiter.Candidate{Asset: asset, Group: p.Group, Probability: res.Probability}, true
}

// placeOrder sizes the selected candidate against current equity and books
// the trap order. A sizing failure drops the candidate with an alert.
func (e *Engine) placeOrder(day Day, c arbiter.Candidate, equity float64) {
	p, err := e.resolver.Resolve(c.Asset)
	if err != nil {
		e.alerts.Publish(alert.Event{Kind: alert.KindConfig, Asset: c.Asset, Day: day.Date, Message: err.Error()})
		return
	}
	snap := day.Snapshots[c.Asset]

	stop, limit := TrapPrices(snap.High, snap.ATR14)
	sized, err := sizing.Calculate(sizing.Inputs{Equity: equity, ATR14: snap.ATR14, Entry: stop})
	if err != nil {
		e.alerts.Publish(alert.Event{Kind: alert.KindSizing, Asset: c.Asset, Day: day.Date, Message: err.Error()})
		return
	}

	o := &Order{
		ID:          id.New(),
		Asset:       c.Asset,
		Profile:     p,
		State:       OrderPending,
		Stop:        stop,
		Limit:       limit,
		ATR:         snap.ATR14,
		ADX:         snap.ADX14,
		Size:        sized.Size,
		Probability: c.Probability,
		RiskAmount:  sized.RiskAmount,
		Created:     day.Date,
	}
	e.orders[c.Asset] = o
	metrics.OrdersPlaced.WithLabelValues(c.Asset).Inc()

	e.record(journal.Transition{
		ID: o.ID, Asset: c.Asset, Day: day.Date, Kind: journal.OrderPlaced,
		Detail: detailf("stop %.2f limit %.2f size %.2f", stop, limit, sized.Size),
	})

	tpMult := TakeProfitMultiple(snap.ADX14)
	card := alert.SignalCard{
		Asset:       c.Asset,
		Class:       p.Class,
		Probability: c.Probability,
		EntryStop:   stop,
		EntryLimit:  limit,
		StopLoss:    stop - sizing.StopATRMultiple*snap.ATR14,
		TakeProfit:  stop + tpMult*snap.ATR14,
		TPMult:      tpMult,
		Size:        sized.Size,
		RiskAmount:  sized.RiskAmount,
		RiskPct:     sized.RiskPct,
		RewardRisk:  tpMult / sizing.StopATRMultiple,
	}
	e.alerts.Publish(alert.Event{Kind: alert.KindLifecycle, Asset: c.Asset, Day: day.Date, Message: card.Format()})
}

// usableBar fetches and validates the day's bar for an asset carrying open
// exposure. A missing or malformed bar is reported and the asset held.
func (e *Engine) usableBar(day Day, asset, holding string) (market.Snapshot, bool) {
	bar, ok := day.Snapshots[asset]
	if !ok {
		e.alerts.Publish(alert.Event{Kind: alert.KindDataQuality, Asset: asset, Day: day.Date,
			Message: "no bar today, " + holding + " held"})
		return market.Snapshot{}, false
	}
	if err := bar.Validate(); err != nil {
		e.alerts.Publish(alert.Event{Kind: alert.KindDataQuality, Asset: asset, Day: day.Date,
			Message: err.Error() + ", " + holding + " held"})
		return market.Snapshot{}, false
	}
	return bar, true
}

// processFills advances orders placed on earlier days through today's bar.
// Orders placed today cannot fill today: their stop sits above today's high
// by construction, and honoring that keeps the cycle causally ordered.
func (e *Engine) processFills(day Day) error {
	for _, o := range e.pendingInOrder() {
		if !o.Created.Before(day.Date) {
			continue
		}
		bar, ok := e.usableBar(day, o.Asset, "working order")
		if !ok {
			continue
		}
		fill, err := o.Advance(bar)
		if err != nil {
			e.log.Error().Err(err).Str("asset", o.Asset).Msg("order advance refused")
			e.alerts.Publish(alert.Event{Kind: alert.KindLifecycle, Asset: o.Asset, Day: day.Date, Message: err.Error()})
			continue
		}
		switch {
		case fill.Filled:
			delete(e.orders, o.Asset)
			pos := NewPosition(o.ID, o, fill.Price, day.Date)
			if err := e.portfolio.Add(pos); err != nil {
				e.alerts.Publish(alert.Event{Kind: alert.KindLifecycle, Asset: o.Asset, Day: day.Date,
					Message: "fill rejected: " + err.Error()})
				e.record(journal.Transition{ID: o.ID, Asset: o.Asset, Day: day.Date,
					Kind: journal.OrderCancelled, Detail: err.Error()})
				continue
			}
			e.record(journal.Transition{ID: o.ID, Asset: o.Asset, Day: day.Date,
				Kind: journal.OrderFilled, Detail: detailf("filled %.2f at %.2f", o.Size, fill.Price)})
		case fill.Expired:
			delete(e.orders, o.Asset)
			metrics.OrdersExpired.WithLabelValues(o.Asset).Inc()
			e.record(journal.Transition{ID: o.ID, Asset: o.Asset, Day: day.Date,
				Kind: journal.OrderExpired, Detail: fill.Reason})
		}
	}
	return nil
}

// CancelOrder withdraws a working trap order by asset.
func (e *Engine) CancelOrder(asset string, day time.Time) error {
	o, ok := e.orders[asset]
	if !ok {
		return &StateViolation{ID: asset, From: "none", Event: "cancel"}
	}
	if err := o.Cancel(); err != nil {
		return err
	}
	delete(e.orders, asset)
	e.record(journal.Transition{ID: o.ID, Asset: asset, Day: day, Kind: journal.OrderCancelled, Detail: "cancelled"})
	return nil
}

// pendingInOrder returns working orders sorted by asset for deterministic
// fill processing.
func (e *Engine) pendingInOrder() []*Order {
	out := make([]*Order, 0, len(e.orders))
	for _, o := range e.orders {
		out = append(out, o)
	}
	sortOrders(out)
	return out
}

// closingMarks collects usable closes for marking the book. Assets whose bar
// has no close are left out and carried at entry.
func (e *Engine) closingMarks(day Day) map[string]float64 {
	marks := make(map[string]float64, len(day.Snapshots))
	for asset, s := range day.Snapshots {
		if s.Close > 0 {
			marks[asset] = s.Close
		}
	}
	return marks
}

func (e *Engine) record(tr journal.Transition) {
	if err := e.journal.RecordTransition(tr); err != nil {
		e.log.Error().Err(err).Str("asset", tr.Asset).Str("kind", tr.Kind).Msg("journal write failed")
	}
}
