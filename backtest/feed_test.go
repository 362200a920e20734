package backtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swingops/market"
)

func dailyCandles(n int, start time.Time) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		price := 100 + float64(i)
		out[i] = market.Candle{
			Time: start.AddDate(0, 0, i),
			Open: price, High: price + 1, Low: price - 1, Close: price + 0.5,
			Volume: 1000,
		}
	}
	return out
}

func TestLoadCandlesCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gld.csv")
	data := "date,open,high,low,close,volume\n" +
		"2024-03-01,100,101,99,100.5,1000\n" +
		"2024-03-04,100.5,102,100,101.5,1200\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	candles, err := LoadCandlesCSV(path)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, "2024-03-01", DayKey(candles[0].Time))
	assert.InDelta(t, 101, candles[0].High, 1e-9)
	assert.InDelta(t, 1200, candles[1].Volume, 1e-9)
}

func TestLoadCandlesCSVRejectsUnorderedDates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.csv")
	data := "date,open,high,low,close,volume\n" +
		"2024-03-04,100,101,99,100.5,1000\n" +
		"2024-03-01,100,101,99,100.5,1000\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := LoadCandlesCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ascending")
}

func TestHistoryThrough(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := dailyCandles(10, start)

	hist, ok := historyThrough(candles, start.AddDate(0, 0, 4))
	require.True(t, ok)
	assert.Len(t, hist, 5)

	// No bar on that day: the asset is held, not interpolated.
	_, ok = historyThrough(candles, start.AddDate(0, 0, 30))
	assert.False(t, ok)

	_, ok = historyThrough(nil, start)
	assert.False(t, ok)
}

func TestHistoryThroughTrimsToMaxHistory(t *testing.T) {
	t.Parallel()

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := dailyCandles(MaxHistory+50, start)

	hist, ok := historyThrough(candles, candles[len(candles)-1].Time)
	require.True(t, ok)
	assert.Len(t, hist, MaxHistory)
	assert.True(t, hist[len(hist)-1].Time.Equal(candles[len(candles)-1].Time))
}

func TestRunWindowTrimsToMaxHistory(t *testing.T) {
	t.Parallel()

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	days := make([]time.Time, MaxHistory+200)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}

	window := RunWindow(days)
	require.Len(t, window, MaxHistory)
	assert.True(t, window[0].Equal(days[200]))
	assert.True(t, window[len(window)-1].Equal(days[len(days)-1]))

	short := RunWindow(days[:10])
	assert.Len(t, short, 10)
}

func TestTradingDaysUnion(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := Dataset{Assets: map[string][]market.Candle{
		"GLD":    dailyCandles(3, start),
		"EURUSD": dailyCandles(3, start.AddDate(0, 0, 2)),
	}}

	days := d.TradingDays()
	require.Len(t, days, 5)
	for i := 1; i < len(days); i++ {
		assert.True(t, days[i-1].Before(days[i]))
	}
}
