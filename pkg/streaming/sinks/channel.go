package sinks

import (
	"context"
	"sync"

	"github.com/vnykmshr/pipeflow/pkg/streaming/writable"
)

// ToChannel creates a stream that sends every chunk on ch. A write completes
// once the chunk is received, so an unbuffered channel makes the stream
// move at the receiver's pace. The stream owns ch from then on: ch is closed
// when the stream closes or is aborted.
func ToChannel[T any](ch chan<- T) (*writable.Stream[T], error) {
	// sending is held for the duration of a send so that ch is never
	// closed under a blocked sender.
	var sending sync.Mutex
	var once sync.Once
	closeCh := func() {
		sending.Lock()
		defer sending.Unlock()
		once.Do(func() { close(ch) })
	}

	config := writable.DefaultConfig[T]()
	config.Name = "channel"
	return writable.NewWithConfig(&writable.Sink[T]{
		Write: func(ctx context.Context, chunk T) error {
			sending.Lock()
			defer sending.Unlock()
			select {
			case ch <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		Close: func(context.Context) error {
			closeCh()
			return nil
		},
		Abort: func(context.Context, error) error {
			closeCh()
			return nil
		},
	}, config)
}
