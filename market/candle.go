package market

import "time"

// Candle represents one daily OHLCV (Open, High, Low, Close, Volume) bar.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	time.Time
	Volume float64
}

// Range returns the high-low span of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}
