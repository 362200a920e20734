// Package features turns raw candle history into the per-day indicator
// snapshot and the feature vector the scoring model consumes.
package features

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/swingops/market"
	"github.com/rustyeddy/swingops/profile"
)

// MinHistory is the fewest candles needed before every indicator in the
// snapshot is defined. EMA50 is the longest per-asset lookback; the extra
// bars let the ADX smoothing settle.
const MinHistory = 60

// RollingWindow is the lookback for the 20-day low, the volume baseline,
// and the relative-strength z-score.
const RollingWindow = 20

// Build computes the indicator snapshot for the last candle in history.
// bench is the profile's benchmark candle history; it may be nil when the
// profile names no benchmark. daysToEvent is negative when the event
// calendar has no entry for the asset.
func Build(asset string, candles, bench []market.Candle, p profile.AssetProfile, daysToEvent int) (market.Snapshot, error) {
	if len(candles) < MinHistory {
		return market.Snapshot{}, &market.DataQualityError{
			Asset:  asset,
			Reason: fmt.Sprintf("need %d candles, have %d", MinHistory, len(candles)),
		}
	}

	highs, lows, closes, volumes := split(candles)
	last := candles[len(candles)-1]

	_, _, macdHist := talib.Macd(closes, 12, 26, 9)

	s := market.Snapshot{
		Asset:  asset,
		Date:   last.Time,
		Open:   last.Open,
		High:   last.High,
		Low:    last.Low,
		Close:  last.Close,
		Volume: last.Volume,

		RSI14:    tail(talib.Rsi(closes, 14)),
		EMA8:     tail(talib.Ema(closes, 8)),
		EMA20:    tail(talib.Ema(closes, 20)),
		EMA50:    tail(talib.Ema(closes, 50)),
		MACDHist: tail(macdHist),
		ADX14:    tail(talib.Adx(highs, lows, closes, 14)),
		ATR14:    tail(talib.Atr(highs, lows, closes, 14)),

		DaysToEvent: daysToEvent,
	}

	s.UpperWick, s.LowerWick = wicks(last)
	s.EMAFan = s.EMA8 > s.EMA20 && s.EMA20 > s.EMA50

	low20 := tail(talib.Min(lows, RollingWindow))
	if low20 > 0 {
		s.DistLow20 = (s.Close - low20) / s.Close
	}

	if p.VolumeFeatures {
		s.OBV = tail(talib.Obv(closes, volumes))
		base := tail(talib.Sma(volumes, RollingWindow))
		if base > 0 {
			s.VolumeRatio = last.Volume / base
		}
	}

	if p.Benchmark != "" {
		z, err := rsZScore(asset, closes, bench)
		if err != nil {
			return market.Snapshot{}, err
		}
		s.RSZScore = z
	}

	if err := finite(asset, s); err != nil {
		return market.Snapshot{}, err
	}
	return s, nil
}

// rsZScore measures how stretched the asset is against its benchmark: the
// z-score of the price ratio over the rolling window.
func rsZScore(asset string, closes []float64, bench []market.Candle) (float64, error) {
	if len(bench) < len(closes) {
		return 0, &market.DataQualityError{Asset: asset, Reason: "benchmark history shorter than asset history"}
	}
	bclose := make([]float64, len(closes))
	for i := range closes {
		bclose[i] = bench[len(bench)-len(closes)+i].Close
	}

	ratio := make([]float64, len(closes))
	for i := range closes {
		if bclose[i] <= 0 {
			return 0, &market.DataQualityError{Asset: asset, Reason: "benchmark close missing"}
		}
		ratio[i] = closes[i] / bclose[i]
	}

	mean := tail(talib.Sma(ratio, RollingWindow))
	std := tail(talib.StdDev(ratio, RollingWindow, 1.0))
	if std == 0 || math.IsNaN(std) {
		return 0, nil
	}
	return (ratio[len(ratio)-1] - mean) / std, nil
}

// Vector lays the snapshot out as the model's input, in the fixed order the
// model was trained with. Volume features ride at the end so forex vectors
// are a strict prefix of equity vectors.
func Vector(s market.Snapshot, p profile.AssetProfile) []float64 {
	fan := 0.0
	if s.EMAFan {
		fan = 1.0
	}
	v := []float64{
		s.RSI14,
		stretch(s.Close, s.EMA8),
		stretch(s.Close, s.EMA20),
		stretch(s.Close, s.EMA50),
		s.MACDHist,
		s.ADX14,
		s.ATR14 / s.Close,
		s.UpperWick,
		s.LowerWick,
		fan,
		s.DistLow20,
		s.RSZScore,
	}
	if p.VolumeFeatures {
		v = append(v, s.OBV, s.VolumeRatio)
	}
	return v
}

// BuildSeries computes the market-level series for one context ticker. The
// 200-day SMA stays NaN until enough history exists, which the macro gate
// treats as unavailable.
func BuildSeries(ticker string, candles []market.Candle) market.Series {
	if len(candles) == 0 {
		return market.Series{Ticker: ticker, Close: math.NaN(), SMA200: math.NaN()}
	}
	last := candles[len(candles)-1]
	s := market.Series{
		Ticker:  ticker,
		Close:   last.Close,
		SMA200:  math.NaN(),
		Updated: last.Time,
	}
	if len(candles) >= 200 {
		_, _, closes, _ := split(candles)
		s.SMA200 = tail(talib.Sma(closes, 200))
	}
	return s
}

func split(candles []market.Candle) (highs, lows, closes, volumes []float64) {
	n := len(candles)
	highs = make([]float64, n)
	lows = make([]float64, n)
	closes = make([]float64, n)
	volumes = make([]float64, n)
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}
	return
}

func tail(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// wicks returns the candle's shadows as fractions of its range. A flat bar
// has no wicks.
func wicks(c market.Candle) (upper, lower float64) {
	r := c.Range()
	if r <= 0 {
		return 0, 0
	}
	body := math.Max(c.Open, c.Close)
	upper = (c.High - body) / r
	lower = (math.Min(c.Open, c.Close) - c.Low) / r
	return upper, lower
}

func stretch(close, ema float64) float64 {
	if ema <= 0 || math.IsNaN(ema) {
		return 0
	}
	return (close - ema) / ema
}

// finite rejects a snapshot whose core indicators did not resolve. Feature
// values the guards and model depend on must be real numbers.
func finite(asset string, s market.Snapshot) error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"rsi14", s.RSI14},
		{"ema8", s.EMA8},
		{"ema20", s.EMA20},
		{"ema50", s.EMA50},
		{"macd_hist", s.MACDHist},
		{"adx14", s.ADX14},
		{"atr14", s.ATR14},
	} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return &market.DataQualityError{Asset: asset, Reason: v.name + " did not resolve"}
		}
	}
	return nil
}
