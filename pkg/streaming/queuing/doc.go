/*
Package queuing provides the backpressure primitives shared by readable and
writable streams: a Strategy that prices chunks against a high-water mark, and
the Queue that holds them.

A stream's desired size is always derived, never stored:

	desired := queuing.DesiredSize(strategy.HighWaterMark, queue.TotalSize())

It is clamped at zero. A source may keep enqueuing past the high-water mark;
the chunks are accepted and the desired size simply stays at zero until
readers drain the queue.

Strategies:

	queuing.DefaultStrategy[string]()     // every chunk costs 1, high-water mark 1
	queuing.CountStrategy[string](16)     // every chunk costs 1
	queuing.ByteLengthStrategy(64 * 1024) // []byte chunks cost len(chunk)

	// Custom sizing; an error here errors the owning stream.
	queuing.Strategy[Order]{
		HighWaterMark: 100,
		Size: func(o Order) (float64, error) { return float64(len(o.Lines)), nil },
	}

Strategies can also be loaded from YAML with ParseSpec.
*/
package queuing
