// Package metrics exposes evaluation and node latency metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/awmpietro/golang-decision-engine/internal/decision"
	"github.com/awmpietro/golang-decision-engine/internal/errs"
)

// Collector tracks:
//   - decision_evaluations_total: evaluations by outcome and error kind
//   - decision_evaluation_duration_seconds: end to end evaluation latency
//   - decision_node_duration_seconds: node latency by node kind
type Collector struct {
	registry *prometheus.Registry

	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	nodeDuration       *prometheus.HistogramVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "decision",
				Name:      "evaluations_total",
				Help:      "Total number of decision evaluations",
			},
			[]string{"outcome", "error_kind"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "decision",
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of decision evaluations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~330ms
			},
			[]string{"outcome"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "decision",
				Name:      "node_duration_seconds",
				Help:      "Duration of node evaluations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 16), // 1µs to ~33ms
			},
			[]string{"kind"},
		),
	}

	c.registry.MustRegister(
		c.evaluationsTotal,
		c.evaluationDuration,
		c.nodeDuration,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) ObserveNodeLatency(ev decision.NodeLatency) {
	c.nodeDuration.WithLabelValues(ev.Kind.String()).Observe(ev.Duration.Seconds())
}

// ObserveEvaluation records one evaluation. err is nil on success.
func (c *Collector) ObserveEvaluation(err error, duration time.Duration) {
	outcome, kind := "success", ""
	if err != nil {
		outcome = "error"
		kind = string(errs.KindOf(err))
		if kind == "" {
			kind = "unknown"
		}
	}
	c.evaluationsTotal.WithLabelValues(outcome, kind).Inc()
	c.evaluationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
