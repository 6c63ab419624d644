// Package metrics provides Prometheus instrumentation for pipeflow streams.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream kinds used as the stream_kind label.
const (
	KindReadable  = "readable"
	KindWritable  = "writable"
	KindTransform = "transform"
)

// Registry holds all metric instances for pipeflow streams.
type Registry struct {
	// Queue Metrics
	ChunksEnqueued     *prometheus.CounterVec
	ChunksDelivered    *prometheus.CounterVec
	QueueSize          *prometheus.GaugeVec
	DesiredSize        *prometheus.GaugeVec
	BackpressureEvents *prometheus.CounterVec

	// Hook Metrics
	Pulls             *prometheus.CounterVec
	WriteDuration     *prometheus.HistogramVec
	Transforms        *prometheus.CounterVec
	TransformDuration *prometheus.HistogramVec

	// Lifecycle Metrics
	StateTransitions *prometheus.CounterVec
	StreamErrors     *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by pipeflow streams.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	config := DefaultConfig()
	config.Registry = reg
	return NewRegistryWithConfig(config)
}

// NewRegistryWithConfig creates a registry honoring the namespace and constant
// labels of config. A nil config.Registry registers with the default registerer.
func NewRegistryWithConfig(config Config) *Registry {
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Namespace == "" {
		config.Namespace = DefaultConfig().Namespace
	}

	factory := promauto.With(config.Registry)
	ns := config.Namespace
	labels := config.Labels

	return &Registry{
		ChunksEnqueued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "chunks_enqueued_total",
				Help:        "Total number of chunks accepted into a stream",
				ConstLabels: labels,
			},
			[]string{"stream_kind", "stream_name"},
		),

		ChunksDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "chunks_delivered_total",
				Help:        "Total number of chunks handed to a reader or sink",
				ConstLabels: labels,
			},
			[]string{"stream_kind", "stream_name"},
		),

		QueueSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "queue_size",
				Help:        "Total size of the chunks currently queued",
				ConstLabels: labels,
			},
			[]string{"stream_kind", "stream_name"},
		),

		DesiredSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "desired_size",
				Help:        "Remaining queue capacity before backpressure applies",
				ConstLabels: labels,
			},
			[]string{"stream_kind", "stream_name"},
		),

		BackpressureEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "backpressure",
				Name:        "events_total",
				Help:        "Total number of chunks accepted while the queue was at capacity",
				ConstLabels: labels,
			},
			[]string{"stream_kind", "stream_name"},
		),

		Pulls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "readable",
				Name:        "pulls_total",
				Help:        "Total number of pull hook invocations",
				ConstLabels: labels,
			},
			[]string{"stream_name"},
		),

		WriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "writable",
				Name:        "write_duration_seconds",
				Help:        "Time spent in the sink write hook",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"stream_name"},
		),

		Transforms: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "transform",
				Name:        "transforms_total",
				Help:        "Total number of transform invocations",
				ConstLabels: labels,
			},
			[]string{"stream_name"},
		),

		TransformDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "transform",
				Name:        "transform_duration_seconds",
				Help:        "Time between a chunk entering the transform and its completion",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"stream_name"},
		),

		StateTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "state_transitions_total",
				Help:        "Total number of transitions into a terminal state",
				ConstLabels: labels,
			},
			[]string{"stream_kind", "stream_name", "state"},
		),

		StreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "errors_total",
				Help:        "Total number of stream errors by originating operation",
				ConstLabels: labels,
			},
			[]string{"stream_kind", "stream_name", "operation"},
		),
	}
}
