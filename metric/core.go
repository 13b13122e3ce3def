package metric

import "github.com/prometheus/client_golang/prometheus"

// Metrics contains the platform-level metrics shared by pipeline components.
type Metrics struct {
	ServiceStatus      *prometheus.GaugeVec
	EventsIngested     *prometheus.CounterVec
	EventsNormalized   *prometheus.CounterVec
	StimuliRouted      *prometheus.CounterVec
	OutcomesRecorded   *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec

	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates the platform metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "iris",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"service"},
		),

		EventsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "iris",
				Subsystem: "events",
				Name:      "ingested_total",
				Help:      "Raw protocol events accepted by the pipeline entry point",
			},
			[]string{"subcategory"},
		),

		EventsNormalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "iris",
				Subsystem: "events",
				Name:      "normalized_total",
				Help:      "Units of work leaving the normalization stage, by outcome",
			},
			[]string{"normalizer", "outcome"},
		),

		StimuliRouted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "iris",
				Subsystem: "router",
				Name:      "stimuli_total",
				Help:      "Stimuli dispatched to twin behaviour pipelines",
			},
			[]string{"twin_type"},
		),

		OutcomesRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "iris",
				Subsystem: "outcomes",
				Name:      "recorded_total",
				Help:      "Outcomes registered in the outcome cache",
			},
			[]string{"twin_type"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "iris",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Event processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "iris",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by class",
			},
			[]string{"service", "class"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "iris",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "iris",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total NATS reconnections",
			},
		),
	}
}
