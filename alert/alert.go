// Package alert is the outbound notification boundary. Events are
// fire-and-forget: Publish never blocks the decision path and never returns
// an error to it.
package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/swingops/market"
)

// Kind classifies an alert event.
type Kind string

const (
	KindStaleData   Kind = "stale_data"
	KindDataQuality Kind = "data_quality"
	KindConfig      Kind = "config"
	KindSizing      Kind = "sizing"
	KindLifecycle   Kind = "lifecycle"
)

// Event is one notification destined for the external sink.
type Event struct {
	Kind    Kind
	Asset   string
	Day     time.Time
	Message string
}

// Sink receives alert events.
type Sink interface {
	Publish(Event)
}

// LogSink writes events to a structured logger. Staleness and data-quality
// problems log at warn, lifecycle events at info.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(e Event) {
	ev := s.log.Info()
	switch e.Kind {
	case KindStaleData, KindDataQuality, KindConfig, KindSizing:
		ev = s.log.Warn()
	}
	ev.Str("kind", string(e.Kind)).
		Str("asset", e.Asset).
		Time("day", e.Day).
		Msg(e.Message)
}

// Collector buffers events in memory; used by tests and by the simulator's
// end-of-run report.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) Publish(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of everything published so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// ByKind returns the collected events of one kind.
func (c *Collector) ByKind(k Kind) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Tee fans one event out to several sinks.
type Tee []Sink

func (t Tee) Publish(e Event) {
	for _, s := range t {
		s.Publish(e)
	}
}

// StaleReport formats the aggregated staleness message for the sink: one
// line per stale series with its age, as of the given day.
func StaleReport(asOf time.Time, stale []market.Series) string {
	msg := "stale market data:"
	for _, s := range stale {
		age := s.AgeHours(asOf)
		if s.Updated.IsZero() {
			msg += fmt.Sprintf(" %s never refreshed;", s.Ticker)
			continue
		}
		msg += fmt.Sprintf(" %s %.1fh old;", s.Ticker, age)
	}
	return msg + " dependent guards forced to FAIL until refreshed"
}
