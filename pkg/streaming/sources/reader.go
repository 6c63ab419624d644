package sources

import (
	"context"
	"errors"
	"io"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
	"github.com/vnykmshr/pipeflow/pkg/common/validation"
	"github.com/vnykmshr/pipeflow/pkg/streaming/queuing"
	"github.com/vnykmshr/pipeflow/pkg/streaming/readable"
)

// ReaderConfig configures FromReader.
type ReaderConfig struct {
	// ChunkSize is the largest chunk read from the reader at once.
	ChunkSize int

	// BufferedBytes is the high-water mark, in bytes, of data read ahead of
	// the consumer. Zero means four chunks.
	BufferedBytes int
}

// DefaultReaderConfig reads 32 KiB chunks.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{ChunkSize: 32 * 1024}
}

// FromReader creates a byte stream that reads r on demand. Chunks are sized
// by their length. The stream closes at io.EOF and errors on any other read
// error. If r is an io.Closer it is closed when the stream is canceled.
func FromReader(r io.Reader, config ReaderConfig) (*readable.Stream[[]byte], error) {
	if r == nil {
		return nil, pferrors.NewValidationError("sources", "reader", nil, "cannot be nil")
	}
	if err := validation.ValidatePositive("sources", "ChunkSize", config.ChunkSize); err != nil {
		return nil, err
	}
	if config.BufferedBytes == 0 {
		config.BufferedBytes = 4 * config.ChunkSize
	}
	if err := validation.ValidatePositive("sources", "BufferedBytes", config.BufferedBytes); err != nil {
		return nil, err
	}

	src := &readable.Source[[]byte]{
		Pull: func(ctx context.Context, c *readable.Controller[[]byte]) error {
			for ctx.Err() == nil {
				buf := make([]byte, config.ChunkSize)
				n, err := r.Read(buf)
				if n > 0 {
					if eerr := c.Enqueue(buf[:n]); eerr != nil {
						return eerr
					}
				}
				if errors.Is(err, io.EOF) {
					return c.Close()
				}
				if err != nil {
					return err
				}
				if n > 0 {
					return nil
				}
			}
			return nil
		},
		Cancel: func(_ context.Context, _ error) error {
			if closer, ok := r.(io.Closer); ok {
				return closer.Close()
			}
			return nil
		},
	}

	return readable.NewWithConfig(src, readable.Config[[]byte]{
		Name:     "reader",
		Strategy: queuing.ByteLengthStrategy(float64(config.BufferedBytes)),
	})
}
