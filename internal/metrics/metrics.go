// Package metrics exposes Prometheus collectors for the tracker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recognition status labels.
const (
	RecognitionDetected = "detected"
	RecognitionEmpty    = "empty"
	RecognitionError    = "error"
	RecognitionSkipped  = "skipped"
)

var (
	observationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alphaomega",
			Name:      "observations_total",
			Help:      "Total outcome observations recorded, partitioned by source and value.",
		},
		[]string{"source", "value"},
	)

	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alphaomega",
			Name:      "resolutions_total",
			Help:      "Total forecast results resolved, partitioned by correctness.",
		},
		[]string{"result"},
	)

	recognitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alphaomega",
			Name:      "recognitions_total",
			Help:      "Recognition attempts per tick, partitioned by status.",
		},
		[]string{"status"},
	)

	recognitionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "alphaomega",
			Name:      "recognition_seconds",
			Help:      "Recognition endpoint latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
	)

	accuracyPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "alphaomega",
			Name:      "accuracy_percent",
			Help:      "Rolling forecast accuracy over all resolved results.",
		},
	)
)

// Register attaches the tracker collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		observationsTotal,
		resolutionsTotal,
		recognitionsTotal,
		recognitionSeconds,
		accuracyPercent,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveOutcome records one observation.
func ObserveOutcome(source, value string) {
	observationsTotal.WithLabelValues(source, value).Inc()
}

// ObserveResolution records one resolved forecast result.
func ObserveResolution(correct bool) {
	result := "wrong"
	if correct {
		result = "correct"
	}
	resolutionsTotal.WithLabelValues(result).Inc()
}

// ObserveRecognition records a recognition attempt and its latency.
func ObserveRecognition(duration time.Duration, status string) {
	recognitionsTotal.WithLabelValues(status).Inc()
	if duration < 0 {
		duration = 0
	}
	recognitionSeconds.Observe(duration.Seconds())
}

// SkippedRecognition records a tick where recognition was not attempted.
func SkippedRecognition() {
	recognitionsTotal.WithLabelValues(RecognitionSkipped).Inc()
}

// SetAccuracy updates the rolling accuracy gauge.
func SetAccuracy(percent float64) {
	accuracyPercent.Set(percent)
}
