// Package metrics holds the Prometheus collectors for checkout and the
// external providers it depends on. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harvesthub"

type Metrics struct {
	registry *prometheus.Registry

	checkouts       *prometheus.CounterVec
	deliveryPlans   *prometheus.CounterVec
	logins          *prometheus.CounterVec
	externalCalls   *prometheus.CounterVec
	externalLatency *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome kind.",
		}, []string{"outcome"}),
		deliveryPlans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_plans_total",
			Help:      "Delivery planning results by completeness.",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
		externalCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_calls_total",
			Help:      "Calls to external providers.",
		}, []string{"provider", "op", "outcome"}),
		externalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Latency of external provider calls, retries included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider", "op"}),
	}
	reg.MustRegister(
		m.checkouts,
		m.deliveryPlans,
		m.logins,
		m.externalCalls,
		m.externalLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Checkout(outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) DeliveryPlan(result string) {
	if m == nil {
		return
	}
	m.deliveryPlans.WithLabelValues(result).Inc()
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// ObserveExternal records one logical provider call started at start.
func (m *Metrics) ObserveExternal(provider, op string, start time.Time, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.externalCalls.WithLabelValues(provider, op, outcome).Inc()
	m.externalLatency.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}

// Checkouts returns the counter for one outcome series.
func (m *Metrics) Checkouts(outcome string) prometheus.Counter {
	return m.checkouts.WithLabelValues(outcome)
}

func (m *Metrics) DeliveryPlans(result string) prometheus.Counter {
	return m.deliveryPlans.WithLabelValues(result)
}

func (m *Metrics) Logins(outcome string) prometheus.Counter {
	return m.logins.WithLabelValues(outcome)
}

func (m *Metrics) ExternalCalls(provider, op, outcome string) prometheus.Counter {
	return m.externalCalls.WithLabelValues(provider, op, outcome)
}
