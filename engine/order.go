// Package engine holds the live trading state: trap orders, open positions,
// the portfolio book, and the daily decision cycle that moves them.
package engine

import (
	"fmt"
	"time"

	"github.com/rustyeddy/swingops/market"
	"github.com/rustyeddy/swingops/profile"
)

// Trap-order price offsets, in ATR multiples above the signal bar's high.
const (
	StopOffsetATR  = 0.02
	LimitOffsetATR = 0.05
)

// ForexOrderTTL is how long a forex trap order stays working, in clock time.
// Session-based assets expire after one unfilled session instead.
const ForexOrderTTL = 24 * time.Hour

// OrderState is the lifecycle state of a trap order.
type OrderState string

const (
	OrderPending   OrderState = "PENDING"
	OrderFilled    OrderState = "FILLED"
	OrderExpired   OrderState = "EXPIRED"
	OrderCancelled OrderState = "CANCELLED"
)

// StateViolation reports an attempt to advance an order or position out of a
// terminal state. It indicates an engine bug, not a market condition.
type StateViolation struct {
	ID    string
	From  string
	Event string
}

func (e *StateViolation) Error() string {
	return fmt.Sprintf("%s: illegal %s from state %s", e.ID, e.Event, e.From)
}

// TrapPrices derives the buy-stop and limit cap from the signal bar. The stop
// sits just above the bar's high so only continuation triggers an entry; the
// limit caps how far above the stop a fill may print.
func TrapPrices(high, atr float64) (stop, limit float64) {
	stop = high + StopOffsetATR*atr
	limit = stop + LimitOffsetATR*atr
	return stop, limit
}

// Order is a pending trap entry awaiting its trigger or expiry.
type Order struct {
	ID      string
	Asset   string
	Profile profile.AssetProfile
	State   OrderState

	Stop  float64
	Limit float64

	// Signal-time values carried through to the position on fill.
	ATR         float64
	ADX         float64
	Size        float64
	Probability float64
	RiskAmount  float64

	Created  time.Time
	sessions int
}

// Fill is the outcome of advancing a pending order across one bar.
type Fill struct {
	Filled  bool
	Price   float64
	Expired bool
	Reason  string
}

// Advance runs one bar through the order. Fill is attempted first; an
// unfilled order then consumes the bar toward its TTL. A bar that opens
// above the limit never fills, whatever its range touched intraday.
func (o *Order) Advance(bar market.Snapshot) (Fill, error) {
	if o.State != OrderPending {
		return Fill{}, &StateViolation{ID: o.ID, From: string(o.State), Event: "advance"}
	}

	if bar.Open > o.Limit {
		return o.tick(bar, "gap above limit")
	}
	if bar.High >= o.Stop {
		o.State = OrderFilled
		price := o.Stop
		if bar.Open > price {
			price = bar.Open
		}
		return Fill{Filled: true, Price: price}, nil
	}
	return o.tick(bar, "stop untouched")
}

// tick counts an unfilled bar against the TTL.
func (o *Order) tick(bar market.Snapshot, reason string) (Fill, error) {
	o.sessions++
	if o.Profile.Class.IsForex() {
		if bar.Date.Sub(o.Created) >= ForexOrderTTL {
			o.State = OrderExpired
			return Fill{Expired: true, Reason: reason}, nil
		}
	} else if o.sessions >= 1 {
		o.State = OrderExpired
		return Fill{Expired: true, Reason: reason}, nil
	}
	return Fill{Reason: reason}, nil
}

// Cancel withdraws a still-pending order.
func (o *Order) Cancel() error {
	if o.State != OrderPending {
		return &StateViolation{ID: o.ID, From: string(o.State), Event: "cancel"}
	}
	o.State = OrderCancelled
	return nil
}
