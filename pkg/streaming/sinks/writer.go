package sinks

import (
	"context"
	"io"
	"time"

	"github.com/vnykmshr/pipeflow/pkg/common/validation"
	"github.com/vnykmshr/pipeflow/pkg/streaming/queuing"
	"github.com/vnykmshr/pipeflow/pkg/streaming/writable"
)

const module = "sinks"

// WriterConfig configures ToWriter.
type WriterConfig struct {
	// MaxRetries is how many times a failed or short write is retried.
	MaxRetries int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// BufferedBytes is the high-water mark, in bytes, of data waiting to be
	// written.
	BufferedBytes int

	// CloseWriter closes the writer, if it is an io.Closer, when the stream
	// closes or is aborted.
	CloseWriter bool
}

// DefaultWriterConfig returns a configuration with three retries.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		MaxRetries:    3,
		RetryDelay:    10 * time.Millisecond,
		BufferedBytes: 64 * 1024,
	}
}

// ToWriter creates a byte stream that writes every chunk to w. A chunk is
// written in full or the stream errors; partial writes resume where they
// stopped.
func ToWriter(w io.Writer, config WriterConfig) (*writable.Stream[[]byte], error) {
	if err := validation.ValidateNotNil(module, "writer", w); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative(module, "MaxRetries", float64(config.MaxRetries)); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative(module, "RetryDelay", float64(config.RetryDelay)); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive(module, "BufferedBytes", config.BufferedBytes); err != nil {
		return nil, err
	}

	closeWriter := func() error {
		if c, ok := w.(io.Closer); ok && config.CloseWriter {
			return c.Close()
		}
		return nil
	}

	return writable.NewWithConfig(&writable.Sink[[]byte]{
		Write: func(ctx context.Context, chunk []byte) error {
			_, err := writeWithRetries(ctx, w, chunk, config)
			return err
		},
		Close: func(context.Context) error { return closeWriter() },
		Abort: func(context.Context, error) error { return closeWriter() },
	}, writable.Config[[]byte]{
		Name:     "writer",
		Strategy: queuing.ByteLengthStrategy(float64(config.BufferedBytes)),
	})
}

func writeWithRetries(ctx context.Context, w io.Writer, data []byte, config WriterConfig) (int, error) {
	var totalWritten int
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(config.RetryDelay):
			case <-ctx.Done():
				return totalWritten, ctx.Err()
			}
		}

		written, err := w.Write(data[totalWritten:])
		totalWritten += written

		if totalWritten >= len(data) {
			return totalWritten, nil
		}
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = io.ErrShortWrite
	}

	return totalWritten, lastErr
}
