// Package metrics is the Core→Metrics sink of spec.md §6: named
// counters and timing histograms, fire-and-forget, never blocking
// matching. Backed by a private prometheus.Registry (not the global
// default one), following abdoElHodaky-tradSys/internal/metrics's
// NewPrometheusRegistry pattern, so a host process can mount several
// instruments without clobbering package-level state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sink is the counters/histograms surface the core writes to. All
// methods are safe for concurrent use and never return an error: a
// metrics backend outage must never affect matching (spec.md §7).
type Sink struct {
	registry *prometheus.Registry

	ordersSubmitted       prometheus.Counter
	ordersMatched         prometheus.Counter
	ordersResting         prometheus.Counter
	volumeTradedCents     prometheus.Counter
	stopOrdersTriggered   prometheus.Counter
	stopOrdersRejected    prometheus.Counter
	icebergOrdersRefilled prometheus.Counter

	orderBookMatch   prometheus.Histogram
	orderProcessing  prometheus.Histogram
	stopTriggerCheck prometheus.Histogram
}

// New builds a Sink registered against a fresh, private registry.
func New() *Sink {
	reg := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchbook",
			Name:      name,
			Help:      help,
		})
		reg.MustRegister(c)
		return c
	}
	histogram := func(name, help string) prometheus.Histogram {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matchbook",
			Name:      name,
			Help:      help,
			Buckets:   prometheus.DefBuckets,
		})
		reg.MustRegister(h)
		return h
	}

	return &Sink{
		registry:              reg,
		ordersSubmitted:       counter("orders_submitted_total", "Orders accepted by the ingest pipeline."),
		ordersMatched:         counter("orders_matched_total", "Orders that produced at least one trade."),
		ordersResting:         counter("orders_resting_total", "Orders (or iceberg slices) that came to rest."),
		volumeTradedCents:     counter("volume_traded_cents_total", "Cumulative traded quantity, in hundredths (match quantity * 100)."),
		stopOrdersTriggered:   counter("stop_orders_triggered_total", "Stop orders armed by a trade, including ones the collar then rejects."),
		stopOrdersRejected:    counter("stop_orders_rejected_total", "Triggered stop-limits rejected by the price collar."),
		icebergOrdersRefilled: counter("iceberg_orders_refilled_total", "Iceberg slices republished after exhaustion."),
		orderBookMatch:        histogram("order_book_match_seconds", "Latency of Book.Match, including cascaded triggers."),
		orderProcessing:       histogram("order_processing_seconds", "End-to-end latency from dequeue to Match return."),
		stopTriggerCheck:      histogram("stop_trigger_check_seconds", "Latency of one CheckTriggers pass."),
	}
}

// Handler exposes the private registry over HTTP for scraping; the core
// never imports net/http itself.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Every method is a no-op on a nil *Sink, so components can take a
// *Sink field and be used in tests without constructing a registry.

func (s *Sink) IncOrdersSubmitted() {
	if s != nil {
		s.ordersSubmitted.Inc()
	}
}
func (s *Sink) IncOrdersMatched() {
	if s != nil {
		s.ordersMatched.Inc()
	}
}
func (s *Sink) IncOrdersResting() {
	if s != nil {
		s.ordersResting.Inc()
	}
}
func (s *Sink) AddVolumeTradedCents(v int64) {
	if s != nil && v > 0 {
		s.volumeTradedCents.Add(float64(v))
	}
}
func (s *Sink) IncStopOrdersTriggered() {
	if s != nil {
		s.stopOrdersTriggered.Inc()
	}
}
func (s *Sink) IncStopOrdersRejected() {
	if s != nil {
		s.stopOrdersRejected.Inc()
	}
}
func (s *Sink) IncIcebergOrdersRefilled() {
	if s != nil {
		s.icebergOrdersRefilled.Inc()
	}
}

func (s *Sink) ObserveOrderBookMatch(seconds float64) {
	if s != nil {
		s.orderBookMatch.Observe(seconds)
	}
}
func (s *Sink) ObserveOrderProcessing(seconds float64) {
	if s != nil {
		s.orderProcessing.Observe(seconds)
	}
}
func (s *Sink) ObserveStopTriggerCheck(seconds float64) {
	if s != nil {
		s.stopTriggerCheck.Observe(seconds)
	}
}
