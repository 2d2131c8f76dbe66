package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for cleanup and verification.
type Observer interface {
	RecordCleanup(collection, outcome string, duration time.Duration)
	RecordVerification(result string)
	RecordSweep(resolved, failed int)
}

// PrometheusObserver exports Observer metrics to Prometheus.
type PrometheusObserver struct {
	cleanups      *prometheus.CounterVec
	deleteLatency *prometheus.HistogramVec
	verifications *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
}

// NewPrometheusObserver registers the collectors on reg (the default
// registerer when nil). Registering twice reuses the existing collectors.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "permitvault"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{
		cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_events_total",
			Help:      "Deletion events handled, by collection and outcome.",
		}, []string{"collection", "outcome"}),
		deleteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cleanup_delete_duration_seconds",
			Help:      "Latency of storage delete calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recaptcha_verifications_total",
			Help:      "Verification proxy responses, by result.",
		}, []string{"result"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_sweep_objects_total",
			Help:      "Orphaned objects processed by sweeps, by result.",
		}, []string{"result"}),
	}

	var err error
	if o.cleanups, err = register(reg, o.cleanups); err != nil {
		return nil, err
	}
	if o.deleteLatency, err = register(reg, o.deleteLatency); err != nil {
		return nil, err
	}
	if o.verifications, err = register(reg, o.verifications); err != nil {
		return nil, err
	}
	if o.sweeps, err = register(reg, o.sweeps); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) RecordCleanup(collection, outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	o.cleanups.WithLabelValues(collection, outcome).Inc()
	if duration > 0 {
		o.deleteLatency.WithLabelValues(collection).Observe(duration.Seconds())
	}
}

func (o *PrometheusObserver) RecordVerification(result string) {
	if o == nil {
		return
	}
	o.verifications.WithLabelValues(result).Inc()
}

func (o *PrometheusObserver) RecordSweep(resolved, failed int) {
	if o == nil {
		return
	}
	o.sweeps.WithLabelValues("resolved").Add(float64(resolved))
	o.sweeps.WithLabelValues("failed").Add(float64(failed))
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCleanup(string, string, time.Duration) {}
func (Nop) RecordVerification(string)                   {}
func (Nop) RecordSweep(int, int)                        {}
