package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "misinfo_inspector"

// MetricsObserver exports predict events as Prometheus metrics
type MetricsObserver struct {
	predictions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewMetricsObserver creates the collectors and registers them with reg
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	o := &MetricsObserver{
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Total /predict requests by result (started, success, failure)",
			},
			[]string{"result"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Failed predictions by failure kind",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "predict_duration_seconds",
				Help:      "Duration of /predict requests that reached a result",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}

	for _, c := range []prometheus.Collector{o.predictions, o.failures, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnEvent handles predict events by updating collectors
func (o *MetricsObserver) OnEvent(ctx context.Context, event PredictEvent) {
	switch event.EventType {
	case PredictStarted:
		o.predictions.WithLabelValues("started").Inc()
	case PredictCompleted:
		o.predictions.WithLabelValues("success").Inc()
		o.duration.Observe(event.ProcessingTime.Seconds())
	case PredictFailed:
		o.predictions.WithLabelValues("failure").Inc()
		o.failures.WithLabelValues(event.FailureKind).Inc()
		o.duration.Observe(event.ProcessingTime.Seconds())
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}
