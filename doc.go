/*
Package pipeflow provides backpressure-aware streams for Go: readable
streams fed by a source, writable streams draining into a sink, and
transform streams that sit between the two.

Streams (pkg/streaming):
  - queuing: Chunk sizing, high-water marks and the sized queue
  - readable: Readable streams, their controllers, readers and tee
  - writable: Writable streams with strictly ordered writes
  - transform: Writable to readable stages with one chunk in flight
  - pipe: To, Through and Collect for connecting streams

Stock ends (pkg/streaming):
  - sources: Slices, channels, generators, io.Reader and cron ticks
  - sinks: io.Writer with retries, channels and an in-memory collector
  - redisio: Redis lists as sources and sinks

Support (pkg):
  - metrics: Prometheus metrics for queue sizes, pulls, writes and transforms
  - common/errors: Sentinel errors and structured error types

Example usage:

	import (
		"github.com/vnykmshr/pipeflow/pkg/streaming/pipe"
		"github.com/vnykmshr/pipeflow/pkg/streaming/sinks"
		"github.com/vnykmshr/pipeflow/pkg/streaming/sources"
	)

	src, _ := sources.FromReader(file, sources.DefaultReaderConfig())
	dst, _ := sinks.ToWriter(conn, sinks.DefaultWriterConfig())
	err := pipe.To(ctx, src, dst, pipe.Options{})
*/
package pipeflow
