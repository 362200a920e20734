package market

import (
	"fmt"
	"math"
	"time"
)

// Snapshot bundles one asset's daily bar with the indicator values the
// feature pipeline computed for it. A Snapshot is produced once per asset
// per trading day and is never mutated afterwards; the engine only reads it.
type Snapshot struct {
	Asset string
	Date  time.Time

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	RSI14    float64
	EMA8     float64
	EMA20    float64
	EMA50    float64
	MACDHist float64
	ADX14    float64
	ATR14    float64

	UpperWick float64 // upper wick as a fraction of candle range
	LowerWick float64 // lower wick as a fraction of candle range
	EMAFan    bool    // EMA8 > EMA20 > EMA50
	DistLow20 float64 // distance from the 20-day low, as a fraction of close

	// Volume-profile features; zero for assets whose profile disables them.
	OBV         float64
	VolumeRatio float64

	RSZScore float64 // relative-strength z-score vs the profile's benchmark

	// Days until the next scheduled event (earnings etc.). Negative when the
	// calendar has no entry for this asset.
	DaysToEvent int
}

// DataQualityError reports a snapshot that cannot be trusted for decisions.
// Per-asset: the asset is held and skipped for the day, never the whole cycle.
type DataQualityError struct {
	Asset  string
	Reason string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("snapshot %s: %s", e.Asset, e.Reason)
}

// Validate checks the fields every downstream component depends on.
// Missing OHLC is the hold-and-report condition from the data contract.
func (s Snapshot) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"open", s.Open},
		{"high", s.High},
		{"low", s.Low},
		{"close", s.Close},
	} {
		if v.val <= 0 || math.IsNaN(v.val) {
			return &DataQualityError{Asset: s.Asset, Reason: "missing " + v.name}
		}
	}
	if s.High < s.Low {
		return &DataQualityError{Asset: s.Asset, Reason: "high below low"}
	}
	if s.Date.IsZero() {
		return &DataQualityError{Asset: s.Asset, Reason: "missing date"}
	}
	return nil
}
