package pipe

import (
	"context"

	"github.com/vnykmshr/pipeflow/pkg/streaming/readable"
	"github.com/vnykmshr/pipeflow/pkg/streaming/transform"
	"github.com/vnykmshr/pipeflow/pkg/streaming/writable"
)

// Options controls how the ends of a pipe are finished.
type Options struct {
	// PreventClose leaves the destination open when the source closes.
	PreventClose bool

	// PreventAbort leaves the destination alone when the source errors or
	// the pipe's context ends.
	PreventAbort bool

	// PreventCancel leaves the source alone when the destination fails or
	// the pipe's context ends. The source's reader lock is released instead.
	PreventCancel bool
}

// To reads every chunk from r and writes it to w, waiting for each write to
// complete before reading the next one. It locks r for its whole duration.
//
// When r closes, w is closed. When r errors, w is aborted with r's error.
// When a write fails, r is canceled with the write error. When ctx ends,
// both ends are finished with ctx.Err(). Options can prevent each of these.
//
// To returns the error that stopped the pipe, or the result of closing w.
func To[T any](ctx context.Context, r *readable.Stream[T], w *writable.Stream[T], opts Options) error {
	reader, err := r.GetReader()
	if err != nil {
		return err
	}
	// Finishing the ends must outlive ctx; it is often the reason we stop.
	cleanup := context.WithoutCancel(ctx)

	for {
		chunk, ok, err := reader.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
				cancelSource(cleanup, reader, err, opts)
			} else {
				reader.ReleaseLock()
			}
			if !opts.PreventAbort {
				_ = w.Abort(cleanup, err)
			}
			return err
		}
		if !ok {
			reader.ReleaseLock()
			if opts.PreventClose {
				return nil
			}
			return w.Close(ctx)
		}

		if err := w.Write(ctx, chunk); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
				if !opts.PreventAbort {
					_ = w.Abort(cleanup, err)
				}
			}
			cancelSource(cleanup, reader, err, opts)
			return err
		}
	}
}

func cancelSource[T any](ctx context.Context, reader *readable.Reader[T], reason error, opts Options) {
	if opts.PreventCancel {
		reader.ReleaseLock()
		return
	}
	_ = reader.Cancel(ctx, reason)
	reader.ReleaseLock()
}

// Through pipes r into the writable side of ts in the background and returns
// the readable side. Failures reach the caller through ts.Readable: a source
// error aborts ts.Writable, which errors ts.Readable in turn.
func Through[W, R any](ctx context.Context, r *readable.Stream[W], ts *transform.Stream[W, R]) *readable.Stream[R] {
	go func() {
		_ = To(ctx, r, ts.Writable, Options{})
	}()
	return ts.Readable
}

// Collect reads r to the end and returns every chunk in order. On error the
// chunks read so far are returned along with it.
func Collect[T any](ctx context.Context, r *readable.Stream[T]) ([]T, error) {
	reader, err := r.GetReader()
	if err != nil {
		return nil, err
	}
	defer reader.ReleaseLock()

	var out []T
	for {
		chunk, ok, err := reader.Read(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, chunk)
	}
}
