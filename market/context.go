package market

import (
	"math"
	"time"
)

// StaleAfter is the maximum age of a market-level series before guards that
// depend on it are forced to FAIL.
const StaleAfter = 24 * time.Hour

// Series is the state of one market-level data series (regime index, VIX,
// benchmark) as of a trading day.
type Series struct {
	Ticker  string
	Close   float64
	SMA200  float64   // NaN until 200 bars are available
	Updated time.Time // last refresh; drives staleness
}

// Ok reports whether the series carries a usable close.
func (s Series) Ok() bool {
	return s.Ticker != "" && !math.IsNaN(s.Close) && s.Close > 0
}

// StaleAt reports whether the series is older than StaleAfter as of now.
// A series that was never updated is stale.
func (s Series) StaleAt(now time.Time) bool {
	if s.Updated.IsZero() {
		return true
	}
	return now.Sub(s.Updated) > StaleAfter
}

// AgeHours returns the series age in hours as of now, or NaN if the series
// was never updated.
func (s Series) AgeHours(now time.Time) float64 {
	if s.Updated.IsZero() {
		return math.NaN()
	}
	return now.Sub(s.Updated).Hours()
}

// Context is the market-level snapshot shared by every asset evaluated on a
// day: regime indices, the VIX, and any benchmarks. Like Snapshot it is
// immutable once built.
type Context struct {
	Date       time.Time
	VIX        Series
	Regime     map[string]Series // keyed by regime index ticker
	Benchmarks map[string]Series // keyed by benchmark ticker
}

// RegimeSeries looks up the regime index series for a ticker.
func (c Context) RegimeSeries(ticker string) (Series, bool) {
	s, ok := c.Regime[ticker]
	return s, ok
}

// BenchmarkSeries looks up a benchmark series for a ticker.
func (c Context) BenchmarkSeries(ticker string) (Series, bool) {
	s, ok := c.Benchmarks[ticker]
	return s, ok
}
