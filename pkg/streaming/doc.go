/*
Package streaming groups the stream primitives and their stock ends.

A readable stream asks its source for data only while its queue is below the
high-water mark, and a writable stream hands chunks to its sink one at a
time. Connected with pipe.To, a slow sink therefore slows the source down
instead of letting memory grow:

	src, _ := sources.FromChannel(events)
	upper, _ := transform.Map(strings.ToUpper)
	dst, _ := sinks.ToWriter(os.Stdout, sinks.DefaultWriterConfig())

	err := pipe.To(ctx, pipe.Through(ctx, src, upper), dst, pipe.Options{})

See the subpackages for details:

  - queuing: strategies and the sized queue shared by all streams
  - readable, writable, transform: the stream types
  - pipe: helpers for connecting streams
  - sources, sinks, redisio: ready-made stream ends
*/
package streaming
