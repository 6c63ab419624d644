package sources

import (
	"context"

	"github.com/vnykmshr/pipeflow/pkg/streaming/readable"
)

func named[T any](name string) readable.Config[T] {
	config := readable.DefaultConfig[T]()
	config.Name = name
	return config
}

// FromSlice creates a stream that yields the items in order and then closes.
// The slice is not copied.
func FromSlice[T any](items []T) (*readable.Stream[T], error) {
	next := 0
	return readable.NewWithConfig(&readable.Source[T]{
		Pull: func(_ context.Context, c *readable.Controller[T]) error {
			if next >= len(items) {
				return c.Close()
			}
			item := items[next]
			next++
			if err := c.Enqueue(item); err != nil {
				return err
			}
			if next == len(items) {
				return c.Close()
			}
			return nil
		},
	}, named[T]("slice"))
}

// FromChannel creates a stream fed by ch. The stream closes when ch is closed.
// Canceling the stream stops reading from ch but does not close it.
func FromChannel[T any](ch <-chan T) (*readable.Stream[T], error) {
	return readable.NewWithConfig(&readable.Source[T]{
		Pull: func(ctx context.Context, c *readable.Controller[T]) error {
			select {
			case item, ok := <-ch:
				if !ok {
					return c.Close()
				}
				return c.Enqueue(item)
			case <-ctx.Done():
				return nil
			}
		},
	}, named[T]("channel"))
}

// Generate creates an endless stream of generator results. The generator is
// only called when the stream wants more data.
func Generate[T any](generator func() T) (*readable.Stream[T], error) {
	return readable.NewWithConfig(&readable.Source[T]{
		Pull: func(_ context.Context, c *readable.Controller[T]) error {
			return c.Enqueue(generator())
		},
	}, named[T]("generate"))
}

// Empty creates a stream that is closed as soon as it starts.
func Empty[T any]() (*readable.Stream[T], error) {
	return readable.NewWithConfig(&readable.Source[T]{
		Start: func(_ context.Context, c *readable.Controller[T]) error {
			return c.Close()
		},
	}, named[T]("empty"))
}
