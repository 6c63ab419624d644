package queuing

import (
	"fmt"
	"math"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
	"github.com/vnykmshr/pipeflow/pkg/common/validation"
)

// DefaultHighWaterMark is the capacity used when no strategy is configured.
const DefaultHighWaterMark = 1

// SizeFunc computes the cost of a chunk. Returning an error is fatal for the
// stream that asked.
type SizeFunc[T any] func(chunk T) (float64, error)

// Strategy is the backpressure policy of a stream: a cost function and the
// capacity threshold the queue is measured against.
//
// A Strategy is bound to a stream by value, so changing the caller's copy after
// construction has no effect on the stream.
type Strategy[T any] struct {
	// Size returns the cost of a chunk. If nil, every chunk costs 1.
	Size SizeFunc[T]

	// HighWaterMark is the total queued size at which backpressure is applied.
	HighWaterMark float64
}

// DefaultStrategy returns a count strategy with a high-water mark of 1.
func DefaultStrategy[T any]() Strategy[T] {
	return Strategy[T]{HighWaterMark: DefaultHighWaterMark}
}

// CountStrategy returns a strategy that counts chunks.
func CountStrategy[T any](highWaterMark float64) Strategy[T] {
	return Strategy[T]{
		HighWaterMark: highWaterMark,
		Size:          func(T) (float64, error) { return 1, nil },
	}
}

// ByteLengthStrategy returns a strategy that measures byte chunks by length.
func ByteLengthStrategy(highWaterMark float64) Strategy[[]byte] {
	return Strategy[[]byte]{
		HighWaterMark: highWaterMark,
		Size:          func(chunk []byte) (float64, error) { return float64(len(chunk)), nil },
	}
}

// Validate reports whether the strategy can be bound to a stream.
func (s Strategy[T]) Validate(module string) error {
	return validation.ValidateNonNegative(module, "highWaterMark", s.HighWaterMark)
}

// ComputeSize returns the size of chunk under the strategy.
func (s Strategy[T]) ComputeSize(chunk T) (float64, error) {
	if s.Size == nil {
		return 1, nil
	}

	var size float64
	err := pferrors.Recover(func() (err error) {
		size, err = s.Size(chunk)
		return err
	})
	if err != nil {
		return 0, err
	}
	if math.IsNaN(size) || math.IsInf(size, 0) || size < 0 {
		return 0, fmt.Errorf("%w: %v", pferrors.ErrInvalidChunkSize, size)
	}
	return size, nil
}

// DesiredSize returns how much more the queue can take before reaching the
// high-water mark. It never goes below zero.
func DesiredSize(highWaterMark, queueTotalSize float64) float64 {
	return math.Max(0, highWaterMark-queueTotalSize)
}
