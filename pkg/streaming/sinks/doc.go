/*
Package sinks provides ready-made writable streams.

ToWriter sends byte chunks to an io.Writer, retrying failed and short
writes. ToChannel hands chunks to a channel receiver one at a time. A
Collector keeps everything written in memory, which is mostly useful in
tests and at the end of a pipe:

	c := sinks.NewCollector[Event]()
	dst, _ := c.Stream()
	err := pipe.To(ctx, src, dst, pipe.Options{})
	events := c.Items()
*/
package sinks
