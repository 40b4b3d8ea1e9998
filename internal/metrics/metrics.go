// Package metrics provides Prometheus metrics for the capture pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "handsignal"

// Run outcomes.
const (
	RunCompleted = "completed"
	RunAborted   = "aborted"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	claps            prometheus.Counter
	ignoredClaps     prometheus.Counter
	runs             *prometheus.CounterVec
	samples          prometheus.Counter
	predictions      *prometheus.CounterVec
	inferenceErrors  prometheus.Counter
	inferenceLatency prometheus.Histogram
	published        *prometheus.CounterVec
	dropped          *prometheus.CounterVec
	predicting       prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.claps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "claps_total",
		Help: "Accepted clap triggers.",
	})
	m.ignoredClaps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "claps_ignored_total",
		Help: "Claps detected while listening was paused.",
	})
	m.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "collection_runs_total",
		Help: "Collection runs by outcome.",
	}, []string{"outcome"})
	m.samples = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "samples_total",
		Help: "Samples taken during collection runs.",
	})
	m.predictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "predictions_total",
		Help: "Classifier predictions by label.",
	}, []string{"label"})
	m.inferenceErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "inference_errors_total",
		Help: "Classification iterations aborted by an error.",
	})
	m.inferenceLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "inference_seconds",
		Help:    "Capture, preprocess and inference latency.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
	})
	m.published = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "publish_total",
		Help: "Frames handed to the connection by subject.",
	}, []string{"subject"})
	m.dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "publish_dropped_total",
		Help: "Frames dropped because the connection was unavailable or failed.",
	}, []string{"subject"})
	m.predicting = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "predicting",
		Help: "1 while the live classification loop is running.",
	})

	m.registry.MustRegister(
		m.claps, m.ignoredClaps, m.runs, m.samples, m.predictions,
		m.inferenceErrors, m.inferenceLatency, m.published, m.dropped, m.predicting,
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Clap() {
	if m != nil {
		m.claps.Inc()
	}
}

func (m *Metrics) ClapIgnored() {
	if m != nil {
		m.ignoredClaps.Inc()
	}
}

func (m *Metrics) Run(outcome string) {
	if m != nil {
		m.runs.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Sample() {
	if m != nil {
		m.samples.Inc()
	}
}

func (m *Metrics) Prediction(label string, took time.Duration) {
	if m != nil {
		m.predictions.WithLabelValues(label).Inc()
		m.inferenceLatency.Observe(took.Seconds())
	}
}

func (m *Metrics) InferenceError() {
	if m != nil {
		m.inferenceErrors.Inc()
	}
}

func (m *Metrics) Published(subject string) {
	if m != nil {
		m.published.WithLabelValues(subject).Inc()
	}
}

func (m *Metrics) Dropped(subject string) {
	if m != nil {
		m.dropped.WithLabelValues(subject).Inc()
	}
}

func (m *Metrics) SetPredicting(on bool) {
	if m == nil {
		return
	}
	if on {
		m.predicting.Set(1)
	} else {
		m.predicting.Set(0)
	}
}
