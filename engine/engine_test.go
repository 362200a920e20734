package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swingops/alert"
	"github.com/rustyeddy/swingops/journal"
	"github.com/rustyeddy/swingops/market"
	"github.com/rustyeddy/swingops/profile"
	"github.com/rustyeddy/swingops/score"
)

func testResolver(t *testing.T) *profile.Resolver {
	t.Helper()
	return profile.NewResolver([]profile.AssetProfile{
		{
			Asset: "AAPL", Class: profile.Equity, RegimeIndex: "SPX",
			RegimeDir: profile.Bull, VIXGuard: true, EventGuard: true,
			VolumeFeatures: true, Benchmark: "SPX", Group: "technology",
		},
		{
			Asset: "GLD", Class: profile.CommodityHaven,
			RegimeDir: profile.Any, VolumeFeatures: true, Group: "havens",
		},
	})
}

func calmContext(d time.Time) market.Context {
	return market.Context{
		Date: d,
		VIX:  market.Series{Ticker: "VIX", Close: 17, Updated: d},
		Regime: map[string]market.Series{
			"SPX": {Ticker: "SPX", Close: 5200, SMA200: 4900, Updated: d},
		},
	}
}

// eligibleSnapshot is a bar that clears every per-asset guard: trending,
// pulled back to the EMA8, no event nearby.
func eligibleSnapshot(asset string, d time.Time) market.Snapshot {
	return market.Snapshot{
		Asset: asset, Date: d,
		Open: 99, High: 100, Low: 98, Close: 99.5,
		EMA8: 99.2, ADX14: 27, ATR14: 2,
		DaysToEvent: 12,
	}
}

func features(n int) []float64 { return make([]float64, n) }

type testHarness struct {
	engine *Engine
	ledger *journal.Memory
	alerts *alert.Collector
}

func newHarness(t *testing.T, prob float64) *testHarness {
	t.Helper()

	ledger := journal.NewMemory()
	alerts := &alert.Collector{}
	scorer := score.NewAdapter(score.ScorerFunc(
		func(_ context.Context, _ string, _ []float64) (float64, error) {
			return prob, nil
		}))

	eng := New(testResolver(t), scorer, nil, ledger, alerts, 10000, zerolog.Nop())
	return &testHarness{engine: eng, ledger: ledger, alerts: alerts}
}

func (h *testHarness) day(d time.Time, snaps ...market.Snapshot) Day {
	dy := Day{
		Date:      d,
		Context:   calmContext(d),
		Snapshots: map[string]market.Snapshot{},
		Features: map[string][]float64{
			"AAPL": features(profile.FeatureSizeFull),
			"GLD":  features(profile.FeatureSizeFull),
		},
	}
	for _, s := range snaps {
		dy.Snapshots[s.Asset] = s
	}
	return dy
}

func transitionsOfKind(ts []journal.Transition, kind string) []journal.Transition {
	var out []journal.Transition
	for _, tr := range ts {
		if tr.Kind == kind {
			out = append(out, tr)
		}
	}
	return out
}

func TestProcessDayPlacesOrderNoSameDayFill(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.82)
	d1 := day(1)

	require.NoError(t, h.engine.ProcessDay(context.Background(), h.day(d1, eligibleSnapshot("AAPL", d1))))

	placed := transitionsOfKind(h.ledger.Transitions(), journal.OrderPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, "AAPL", placed[0].Asset)

	// The order is working but nothing filled today.
	assert.Empty(t, transitionsOfKind(h.ledger.Transitions(), journal.OrderFilled))
	assert.Equal(t, 0, h.engine.Portfolio().OpenCount())
	require.Len(t, h.engine.PendingOrders(), 1)
	assert.InDelta(t, 100.04, h.engine.PendingOrders()[0].Stop, 1e-9)

	// The signal card went out with the order.
	lifecycle := h.alerts.ByKind(alert.KindLifecycle)
	require.Len(t, lifecycle, 1)
	assert.Contains(t, lifecycle[0].Message, "SIGNAL LONG AAPL")
}

func TestProcessDayFillLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.82)
	ctx := context.Background()

	d1 := day(1)
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d1, eligibleSnapshot("AAPL", d1))))

	// Next day breaks above the stop: the order fills and a position opens.
	d2 := day(2)
	fillBar := market.Snapshot{
		Asset: "AAPL", Date: d2,
		Open: 99.9, High: 100.6, Low: 99.5, Close: 100.4,
		EMA8: 99.8, ADX14: 27, ATR14: 2, DaysToEvent: 11,
	}
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d2, fillBar)))

	require.Len(t, transitionsOfKind(h.ledger.Transitions(), journal.OrderFilled), 1)
	assert.Equal(t, 1, h.engine.Portfolio().OpenCount())
	assert.Empty(t, h.engine.PendingOrders())

	pos, ok := h.engine.Portfolio().Position("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 100.04, pos.Entry, 1e-9)
	assert.Equal(t, OpenFull, pos.State)

	// A stop-day bar closes the position and books the trade.
	d3 := day(3)
	stopBar := market.Snapshot{
		Asset: "AAPL", Date: d3,
		Open: 97, High: 98, Low: 95.5, Close: 96,
		EMA8: 98, ADX14: 25, ATR14: 2, DaysToEvent: 10,
	}
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d3, stopBar)))

	assert.Equal(t, 0, h.engine.Portfolio().OpenCount())
	trades := h.ledger.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, ExitStop, trades[0].Reason)
	assert.InDelta(t, 96.04, trades[0].ExitPrice, 1e-9)
	assert.Equal(t, "technology", trades[0].Group)
}

func TestProcessDayGapThroughExpires(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.82)
	ctx := context.Background()

	d1 := day(1)
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d1, eligibleSnapshot("AAPL", d1))))

	// Next day opens far above the limit: no fill, order expires.
	d2 := day(2)
	gapBar := market.Snapshot{
		Asset: "AAPL", Date: d2,
		Open: 101, High: 102, Low: 100.5, Close: 101.5,
		EMA8: 100, ADX14: 27, ATR14: 2, DaysToEvent: 11,
	}
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d2, gapBar)))

	assert.Empty(t, transitionsOfKind(h.ledger.Transitions(), journal.OrderFilled))
	require.Len(t, transitionsOfKind(h.ledger.Transitions(), journal.OrderExpired), 1)
	assert.Equal(t, 0, h.engine.Portfolio().OpenCount())
	assert.Empty(t, h.engine.PendingOrders())
}

func TestProcessDaySoftGateBlocks(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.60)
	d1 := day(1)

	require.NoError(t, h.engine.ProcessDay(context.Background(), h.day(d1, eligibleSnapshot("AAPL", d1))))
	assert.Empty(t, h.engine.PendingOrders())
	assert.Empty(t, transitionsOfKind(h.ledger.Transitions(), journal.OrderPlaced))
}

func TestProcessDayStaleContextAlerts(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.82)
	d1 := day(5)

	dy := h.day(d1, eligibleSnapshot("AAPL", d1))
	stale := dy.Context.Regime["SPX"]
	stale.Updated = d1.Add(-30 * time.Hour)
	dy.Context.Regime["SPX"] = stale

	require.NoError(t, h.engine.ProcessDay(context.Background(), dy))

	assert.Empty(t, h.engine.PendingOrders())

	// One aggregated report for the day, naming the stale series.
	staleAlerts := h.alerts.ByKind(alert.KindStaleData)
	require.Len(t, staleAlerts, 1)
	assert.Contains(t, staleAlerts[0].Message, "stale market data")
	assert.Contains(t, staleAlerts[0].Message, "SPX")
}

func TestProcessDayBadSnapshotIsolated(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.82)
	d1 := day(1)

	bad := eligibleSnapshot("AAPL", d1)
	bad.Close = 0
	good := eligibleSnapshot("GLD", d1)

	require.NoError(t, h.engine.ProcessDay(context.Background(), h.day(d1, bad, good)))

	// AAPL is held and reported; GLD still gets its order.
	require.Len(t, h.alerts.ByKind(alert.KindDataQuality), 1)
	placed := transitionsOfKind(h.ledger.Transitions(), journal.OrderPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, "GLD", placed[0].Asset)
}

func TestProcessDayMalformedBarHoldsPosition(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.82)
	ctx := context.Background()

	d1 := day(1)
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d1, eligibleSnapshot("AAPL", d1))))
	d2 := day(2)
	fillBar := market.Snapshot{
		Asset: "AAPL", Date: d2,
		Open: 99.9, High: 100.6, Low: 99.5, Close: 100.4,
		EMA8: 99.8, ADX14: 27, ATR14: 2, DaysToEvent: 11,
	}
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d2, fillBar)))
	require.Equal(t, 1, h.engine.Portfolio().OpenCount())

	// A bar with no OHLC would look like a crash through the stop; the
	// position is held and the day reported instead.
	d3 := day(3)
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d3, market.Snapshot{Asset: "AAPL", Date: d3})))

	assert.Equal(t, 1, h.engine.Portfolio().OpenCount())
	assert.Empty(t, h.ledger.Trades())
	quality := h.alerts.ByKind(alert.KindDataQuality)
	require.Len(t, quality, 1)
	assert.Contains(t, quality[0].Message, "held")

	// A day with no bar at all holds and reports the same way.
	d4 := day(4)
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d4)))
	assert.Equal(t, 1, h.engine.Portfolio().OpenCount())
	require.Len(t, h.alerts.ByKind(alert.KindDataQuality), 2)

	pos, ok := h.engine.Portfolio().Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, 0, pos.DaysHeld)
}

func TestProcessDayMalformedBarHoldsOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.82)
	ctx := context.Background()

	d1 := day(1)
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d1, eligibleSnapshot("AAPL", d1))))
	require.Len(t, h.engine.PendingOrders(), 1)

	// The malformed bar neither fills the order nor consumes its session.
	d2 := day(2)
	bad := market.Snapshot{Asset: "AAPL", Date: d2, Open: 99, High: 100, Low: 98}
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d2, bad)))

	require.Len(t, h.engine.PendingOrders(), 1)
	assert.Empty(t, transitionsOfKind(h.ledger.Transitions(), journal.OrderExpired))
	require.Len(t, h.alerts.ByKind(alert.KindDataQuality), 1)

	// The next clean bar can still fill it.
	d3 := day(3)
	fillBar := market.Snapshot{
		Asset: "AAPL", Date: d3,
		Open: 99.9, High: 100.6, Low: 99.5, Close: 100.4,
		EMA8: 99.8, ADX14: 27, ATR14: 2, DaysToEvent: 10,
	}
	require.NoError(t, h.engine.ProcessDay(ctx, h.day(d3, fillBar)))
	assert.Equal(t, 1, h.engine.Portfolio().OpenCount())
}

func TestProcessDayIsolatesLifecycleViolation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.60)
	pos := openPosition()
	pos.State = Closed
	require.NoError(t, h.engine.Portfolio().Add(pos))

	// Advancing the corrupted position fails; the day still completes and
	// the failure is surfaced instead of aborting the cycle.
	d := day(2)
	require.NoError(t, h.engine.ProcessDay(context.Background(), h.day(d, eligibleSnapshot("AAPL", d))))

	lifecycle := h.alerts.ByKind(alert.KindLifecycle)
	require.Len(t, lifecycle, 1)
	assert.Contains(t, lifecycle[0].Message, "illegal advance")
}

func TestProcessDayRecordsEquityCurve(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.60)
	d1 := day(1)

	require.NoError(t, h.engine.ProcessDay(context.Background(), h.day(d1, eligibleSnapshot("AAPL", d1))))

	curve := h.ledger.Equity()
	require.Len(t, curve, 1)
	assert.InDelta(t, 10000, curve[0].Equity, 1e-9)
	assert.Equal(t, 0, curve[0].OpenPositions)
}

func TestCancelOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0.82)
	d1 := day(1)
	require.NoError(t, h.engine.ProcessDay(context.Background(), h.day(d1, eligibleSnapshot("AAPL", d1))))
	require.Len(t, h.engine.PendingOrders(), 1)

	require.NoError(t, h.engine.CancelOrder("AAPL", d1))
	assert.Empty(t, h.engine.PendingOrders())
	assert.Len(t, transitionsOfKind(h.ledger.Transitions(), journal.OrderCancelled), 1)

	var sv *StateViolation
	assert.ErrorAs(t, h.engine.CancelOrder("AAPL", d1), &sv)
}
