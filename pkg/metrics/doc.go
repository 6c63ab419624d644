// Package metrics provides Prometheus instrumentation for pipeflow streams.
//
// Readable, writable and transform streams report queue occupancy, chunk
// throughput, hook activity and lifecycle transitions when their Config
// carries a *Registry. A stream without a registry records nothing.
//
// # Quick Start
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//
//	cfg := readable.DefaultConfig[string]()
//	cfg.Name = "ingest"
//	cfg.Metrics = reg
//	rs, err := readable.NewWithConfig(src, cfg)
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Available Metrics
//
// ## Queue Metrics
//
//   - pipeflow_stream_chunks_enqueued_total: Chunks accepted into a stream
//   - pipeflow_stream_chunks_delivered_total: Chunks handed to a reader or sink
//   - pipeflow_stream_queue_size: Total size of the queued chunks
//   - pipeflow_stream_desired_size: Remaining capacity before backpressure
//   - pipeflow_backpressure_events_total: Chunks accepted with no capacity left
//
// ## Hook Metrics
//
//   - pipeflow_readable_pulls_total: Pull hook invocations
//   - pipeflow_writable_write_duration_seconds: Time spent in sink writes
//   - pipeflow_transform_transforms_total: Completed transforms
//   - pipeflow_transform_transform_duration_seconds: Time from chunk arrival to done
//
// ## Lifecycle Metrics
//
//   - pipeflow_stream_state_transitions_total: Transitions into closed or errored
//   - pipeflow_stream_errors_total: Errors by originating operation
//
// # Labels
//
//   - stream_kind: "readable", "writable" or "transform"
//   - stream_name: Config.Name of the stream instance
//   - state: terminal state entered ("closed", "errored")
//   - operation: hook or call that raised the error ("start", "pull", "write", ...)
//
// # Configuration
//
//	config := metrics.Config{
//		Enabled:   true,
//		Registry:  prometheus.DefaultRegisterer,
//		Namespace: "myapp",
//		Labels:    prometheus.Labels{"version": "1.0"},
//	}
//	reg := metrics.FromConfig(config)
//
// FromConfig returns nil for a disabled configuration, which streams treat
// as "no metrics".
package metrics
