package readable

// Controller is the handle a Source uses to push chunks into its stream or
// end it. Each stream has exactly one.
type Controller[T any] struct {
	stream *Stream[T]
}

// Enqueue adds chunk to the stream. If a read is waiting the chunk goes
// straight to it; otherwise it is queued. Enqueuing past the high-water mark
// is allowed, the desired size just stays at zero.
//
// Enqueue fails once the stream is closed, errored or has a close pending.
// A failing size function errors the stream and its error is returned.
func (c *Controller[T]) Enqueue(chunk T) error {
	return c.stream.enqueue(chunk)
}

// Close requests that the stream close. Queued chunks can still be read;
// the stream closes when the last one is taken.
func (c *Controller[T]) Close() error {
	return c.stream.requestClose()
}

// Error fails the stream with err. The queue is discarded, waiting reads
// receive err and the reader lock is released. Error fails if the stream is
// already closed or errored.
func (c *Controller[T]) Error(err error) error {
	s := c.stream
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorLocked(err)
}

// DesiredSize returns the remaining queue capacity. A source should stop
// producing when it reaches zero.
func (c *Controller[T]) DesiredSize() float64 {
	return c.stream.DesiredSize()
}
