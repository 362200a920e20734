package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rustyeddy/swingops/market"
)

// MaxHistory caps how many candles of lookback each day's snapshot sees.
// Indicators only need the recent window; the cap keeps long runs flat in
// memory and work per day.
const MaxHistory = 1000

// Dataset is everything a run reads: per-asset candle history, per-ticker
// context history (VIX, regime indices, benchmarks), and the event calendar.
type Dataset struct {
	Assets  map[string][]market.Candle
	Context map[string][]market.Candle

	// Events maps asset then day (DayKey format) to days-until-event.
	// A missing entry means the calendar has no answer for that day.
	Events map[string]map[string]int
}

// DayKey formats a time as the calendar-day key used by Dataset.Events.
func DayKey(t time.Time) string { return t.Format("2006-01-02") }

// TradingDays returns the sorted union of candle dates across all assets.
func (d Dataset) TradingDays() []time.Time {
	seen := make(map[string]time.Time)
	for _, candles := range d.Assets {
		for _, c := range candles {
			seen[DayKey(c.Time)] = c.Time
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// historyThrough returns the candles up to and including day, trimmed to the
// most recent MaxHistory bars. ok is false when the asset has no bar on day.
func historyThrough(candles []market.Candle, day time.Time) (hist []market.Candle, ok bool) {
	n := sort.Search(len(candles), func(i int) bool { return candles[i].Time.After(day) })
	if n == 0 || !sameDay(candles[n-1].Time, day) {
		return nil, false
	}
	hist = candles[:n]
	if len(hist) > MaxHistory {
		hist = hist[len(hist)-MaxHistory:]
	}
	return hist, true
}

func sameDay(a, b time.Time) bool { return DayKey(a) == DayKey(b) }

// RunWindow trims a sorted trading-day list to the most recent MaxHistory
// days, the span a run actually simulates.
func RunWindow(days []time.Time) []time.Time {
	if len(days) > MaxHistory {
		return days[len(days)-MaxHistory:]
	}
	return days
}

// LoadCandlesCSV reads a daily candle file with a
// date,open,high,low,close,volume header. Dates are calendar days; rows must
// already be in ascending date order.
func LoadCandlesCSV(path string) ([]market.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	if len(header) < 6 {
		return nil, fmt.Errorf("%s: want date,open,high,low,close,volume header, got %v", path, header)
	}

	var out []market.Candle
	var prev time.Time
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", path, line, err)
		}

		day, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", path, line, err)
		}
		if !prev.IsZero() && !day.After(prev) {
			return nil, fmt.Errorf("%s: line %d: dates not ascending", path, line)
		}
		prev = day

		c := market.Candle{Time: day}
		for _, field := range []struct {
			idx  int
			dest *float64
		}{
			{1, &c.Open}, {2, &c.High}, {3, &c.Low}, {4, &c.Close}, {5, &c.Volume},
		} {
			v, err := strconv.ParseFloat(rec[field.idx], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: line %d: %w", path, line, err)
			}
			*field.dest = v
		}
		out = append(out, c)
	}
	return out, nil
}
