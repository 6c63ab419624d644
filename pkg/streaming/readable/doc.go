/*
Package readable provides a backpressure-aware readable stream.

A Stream is fed by a Source through its Controller and drained by a single
Reader. The source learns how much the consumer wants through the
controller's DesiredSize, and the stream only calls Pull while the queue is
below its high-water mark:

	rs, err := readable.New(&readable.Source[int]{
		Pull: func(ctx context.Context, c *readable.Controller[int]) error {
			n, more := next()
			if !more {
				return c.Close()
			}
			return c.Enqueue(n)
		},
	})
	if err != nil {
		return err
	}

	reader, err := rs.GetReader()
	if err != nil {
		return err
	}
	defer reader.ReleaseLock()

	for {
		n, ok, err := reader.Read(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break // closed and drained
		}
		use(n)
	}

# Lifecycle

A stream starts out readable and ends up either closed or errored; both are
terminal. Closing with chunks still queued only flags the request, and the
stream closes once a reader takes the last chunk. Erroring discards the queue
and fails every waiting read with the stored error, which every later
operation reports as well.

# Concurrency

Each stream guards its state with one mutex. Source hooks run on their own
goroutines and never while that mutex is held, and at most one Pull is in
flight at a time. Hooks receive a context that is cancelled when the stream
reaches a terminal state. Blocking calls take the caller's context; the stream
adds no timeouts of its own.

# Tee

Tee splits a stream into two branches sharing one upstream read loop. The
source is only cancelled once both branches have been cancelled.
*/
package readable
