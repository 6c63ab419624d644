package sinks

import (
	"context"
	"sync"

	"github.com/vnykmshr/pipeflow/pkg/streaming/writable"
)

// Collector keeps every chunk written to its stream in memory.
type Collector[T any] struct {
	mu    sync.Mutex
	items []T
	err   error
	done  chan struct{}
	once  sync.Once
}

// NewCollector creates an empty collector.
func NewCollector[T any]() *Collector[T] {
	return &Collector[T]{done: make(chan struct{})}
}

// Sink returns the sink hooks that feed the collector. Use it with
// writable.New; a collector should back a single stream.
func (c *Collector[T]) Sink() *writable.Sink[T] {
	return &writable.Sink[T]{
		Write: func(_ context.Context, chunk T) error {
			c.mu.Lock()
			c.items = append(c.items, chunk)
			c.mu.Unlock()
			return nil
		},
		Close: func(context.Context) error {
			c.finish(nil)
			return nil
		},
		Abort: func(_ context.Context, reason error) error {
			c.finish(reason)
			return nil
		},
	}
}

// Stream creates a writable stream backed by the collector.
func (c *Collector[T]) Stream() (*writable.Stream[T], error) {
	return writable.New(c.Sink())
}

func (c *Collector[T]) finish(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// Items returns a copy of the chunks collected so far.
func (c *Collector[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Done is closed once the stream closes or is aborted.
func (c *Collector[T]) Done() <-chan struct{} {
	return c.done
}

// Err returns the abort reason, or nil if the stream closed normally or is
// still open.
func (c *Collector[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
