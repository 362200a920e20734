package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/swingops/guard"
)

// Portfolio is the book of open positions plus cash. All mutation happens
// under the mutex; the arbiter reads it through the PortfolioView methods.
type Portfolio struct {
	mu        sync.Mutex
	balance   float64
	positions map[string]*Position
	groups    map[string]string // group -> asset holding it
}

func NewPortfolio(startingCash float64) *Portfolio {
	return &Portfolio{
		balance:   startingCash,
		positions: make(map[string]*Position),
		groups:    make(map[string]string),
	}
}

// OpenCount reports how many positions are open.
func (p *Portfolio) OpenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.positions)
}

// GroupOccupied reports whether a concentration group already holds a
// position.
func (p *Portfolio) GroupOccupied(group string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.groups[group]
	return ok
}

// Balance returns uninvested cash.
func (p *Portfolio) Balance() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

// Equity marks the book to the given closing prices. Positions without a
// mark are carried at entry.
func (p *Portfolio) Equity(marks map[string]float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	eq := p.balance
	for asset, pos := range p.positions {
		mark, ok := marks[asset]
		if !ok {
			mark = pos.Entry
		}
		eq += pos.Size * mark
	}
	return eq
}

// Add books a freshly filled position and debits its cost from cash. The
// exposure cap and one-position-per-group invariants are enforced here as a
// final backstop behind arbitration.
func (p *Portfolio) Add(pos *Position) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.positions) >= guard.ExposureCap {
		return fmt.Errorf("add %s: exposure cap reached", pos.Asset)
	}
	if _, ok := p.positions[pos.Asset]; ok {
		return fmt.Errorf("add %s: position already open", pos.Asset)
	}
	if holder, ok := p.groups[pos.Profile.Group]; ok {
		return fmt.Errorf("add %s: group %q held by %s", pos.Asset, pos.Profile.Group, holder)
	}

	p.positions[pos.Asset] = pos
	p.groups[pos.Profile.Group] = pos.Asset
	p.balance -= pos.Size * pos.Entry
	return nil
}

// Credit returns sale proceeds to cash.
func (p *Portfolio) Credit(amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance += amount
}

// Remove drops a closed position from the book.
func (p *Portfolio) Remove(asset string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[asset]
	if !ok {
		return
	}
	delete(p.positions, asset)
	delete(p.groups, pos.Profile.Group)
}

func sortOrders(orders []*Order) {
	sort.Slice(orders, func(i, j int) bool { return orders[i].Asset < orders[j].Asset })
}

func detailf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// Position returns the open position for an asset, if any.
func (p *Portfolio) Position(asset string) (*Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[asset]
	return pos, ok
}

// Positions returns the open positions in asset order.
func (p *Portfolio) Positions() []*Position {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}
