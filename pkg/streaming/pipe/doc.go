/*
Package pipe connects readable streams to writable and transform streams.

To moves chunks from a readable into a writable stream one write at a time,
so a slow sink slows the source down through the readable stream's
backpressure:

	err := pipe.To(ctx, src, dst, pipe.Options{})

Through places a transform stream behind a readable stream and hands back
its readable side, which makes stages easy to chain:

	words := pipe.Through(ctx, lines, splitter)
	counts := pipe.Through(ctx, words, counter)
	all, err := pipe.Collect(ctx, counts)
*/
package pipe
