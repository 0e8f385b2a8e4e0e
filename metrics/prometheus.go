package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docquery"

// Prometheus implements Recorder with client_golang collectors.
type Prometheus struct {
	reads            *prometheus.CounterVec
	readDuration     *prometheus.HistogramVec
	fallbacks        *prometheus.CounterVec
	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	auditFailures    *prometheus.CounterVec
}

// NewPrometheus registers the collectors on reg, or on the default
// registerer when reg is nil.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Prometheus{
		reads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "read",
				Name:      "total",
				Help:      "Total number of hook reads",
			},
			[]string{"kind", "collection", "source", "outcome"},
		),
		readDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "read",
				Name:      "duration_seconds",
				Help:      "Hook read duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"kind", "collection"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "fallbacks_total",
				Help:      "Cache-first reads served by the server",
			},
			[]string{"kind", "collection"},
		),
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mutation",
				Name:      "total",
				Help:      "Total number of mutations",
			},
			[]string{"op", "collection", "outcome"},
		),
		mutationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "mutation",
				Name:      "duration_seconds",
				Help:      "Mutation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op", "collection"},
		),
		auditFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "failures_total",
				Help:      "Audit log writes that failed",
			},
			[]string{"collection"},
		),
	}
}

func (p *Prometheus) ReadCompleted(kind, collection, source string, duration time.Duration, err error) {
	p.reads.WithLabelValues(kind, collection, source, Outcome(err)).Inc()
	p.readDuration.WithLabelValues(kind, collection).Observe(duration.Seconds())
}

func (p *Prometheus) CacheFallback(kind, collection string) {
	p.fallbacks.WithLabelValues(kind, collection).Inc()
}

func (p *Prometheus) MutationCompleted(op, collection string, duration time.Duration, err error) {
	p.mutations.WithLabelValues(op, collection, Outcome(err)).Inc()
	p.mutationDuration.WithLabelValues(op, collection).Observe(duration.Seconds())
}

func (p *Prometheus) AuditFailed(collection string) {
	p.auditFailures.WithLabelValues(collection).Inc()
}
