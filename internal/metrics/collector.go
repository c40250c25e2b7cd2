package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SourceHTTP  = "http"
	SourceQueue = "queue"

	OutcomeProcessed = "processed"
	OutcomeMalformed = "malformed"
	OutcomeRejected  = "rejected"
	OutcomeRequeued  = "requeued"
)

// Observer records watermark service telemetry. A nil *PrometheusObserver is
// a valid no-op Observer.
type Observer interface {
	RecordApply(source, status string, duration time.Duration)
	RecordQueueMessage(outcome string)
}

type PrometheusObserver struct {
	applyDuration *prometheus.HistogramVec
	applyTotal    *prometheus.CounterVec
	queueMessages *prometheus.CounterVec
}

// NewPrometheusObserver registers the watermark metrics on reg (the default
// registerer when nil). Collectors already registered are reused.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "watermark_tool"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	applyDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "apply_duration_seconds",
		Help:      "Time spent compositing a watermark, including decode and encode.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"source"})
	applyTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "apply_total",
		Help:      "Watermark requests by source and result status.",
	}, []string{"source", "status"})
	queueMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_messages_total",
		Help:      "Consumed queue deliveries by outcome.",
	}, []string{"outcome"})

	var err error
	if applyDuration, err = register(reg, applyDuration); err != nil {
		return nil, err
	}
	if applyTotal, err = register(reg, applyTotal); err != nil {
		return nil, err
	}
	if queueMessages, err = register(reg, queueMessages); err != nil {
		return nil, err
	}

	return &PrometheusObserver{
		applyDuration: applyDuration,
		applyTotal:    applyTotal,
		queueMessages: queueMessages,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return collector, fmt.Errorf("register watermark metric: %w", err)
	}
	return collector, nil
}

func (o *PrometheusObserver) RecordApply(source, status string, duration time.Duration) {
	if o == nil {
		return
	}
	o.applyDuration.WithLabelValues(source).Observe(duration.Seconds())
	o.applyTotal.WithLabelValues(source, status).Inc()
}

func (o *PrometheusObserver) RecordQueueMessage(outcome string) {
	if o == nil {
		return
	}
	o.queueMessages.WithLabelValues(outcome).Inc()
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) RecordApply(string, string, time.Duration) {}

func (NopObserver) RecordQueueMessage(string) {}
