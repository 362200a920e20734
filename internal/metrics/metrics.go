package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rustyeddy/swingops/alert"
)

var (
	GuardFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "guard_failures_total", Help: "Hard-guard failures by guard name"},
		[]string{"guard"},
	)
	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_placed_total", Help: "Trap orders placed"},
		[]string{"asset"},
	)
	OrdersExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_expired_total", Help: "Trap orders expired unfilled"},
		[]string{"asset"},
	)
	TradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_closed_total", Help: "Positions closed by exit reason"},
		[]string{"asset", "reason"},
	)
	AlertsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_published_total", Help: "Alert events by kind"},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(GuardFailures, OrdersPlaced, OrdersExpired, TradesClosed, AlertsPublished)
}

// CountingSink counts alert events by kind before handing them to the next
// sink. Next may be nil.
type CountingSink struct {
	Next alert.Sink
}

func (s CountingSink) Publish(e alert.Event) {
	AlertsPublished.WithLabelValues(string(e.Kind)).Inc()
	if s.Next != nil {
		s.Next.Publish(e)
	}
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
