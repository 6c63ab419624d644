package readable

import (
	"context"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
)

type readResult[T any] struct {
	value T
	ok    bool
	err   error
}

type readRequest[T any] struct {
	ch chan readResult[T]
}

// Reader holds the exclusive lock on a readable stream and is the only way
// to take chunks out of it.
//
// A Reader is safe for concurrent use; concurrent reads are served in the
// order they were issued.
type Reader[T any] struct {
	stream *Stream[T]

	// Guarded by stream.mu.
	requests []*readRequest[T]
	attached bool
	released bool

	closed chan struct{}
}

// Read returns the next chunk, waiting for one if the queue is empty.
//
// ok is false with a nil error once the stream is closed and drained. Once
// the stream errors, Read returns its stored error. If ctx ends first, the
// read is withdrawn and ctx.Err() is returned.
func (r *Reader[T]) Read(ctx context.Context) (chunk T, ok bool, err error) {
	var zero T
	s := r.stream

	s.mu.Lock()
	if r.released {
		s.mu.Unlock()
		return zero, false, pferrors.ErrReaderReleased
	}
	switch s.state {
	case StateErrored:
		err := s.storedErr
		s.mu.Unlock()
		return zero, false, err
	case StateClosed:
		s.mu.Unlock()
		return zero, false, nil
	}

	if chunk, ok := s.dequeueLocked(); ok {
		s.mu.Unlock()
		return chunk, true, nil
	}

	req := &readRequest[T]{ch: make(chan readResult[T], 1)}
	r.requests = append(r.requests, req)
	s.pullIfNeededLocked()
	s.mu.Unlock()

	select {
	case res := <-req.ch:
		return res.value, res.ok, res.err
	case <-ctx.Done():
		s.mu.Lock()
		withdrawn := r.withdrawLocked(req)
		s.mu.Unlock()
		if withdrawn {
			return zero, false, ctx.Err()
		}
		// Settled while we were giving up; don't lose the chunk.
		res := <-req.ch
		return res.value, res.ok, res.err
	}
}

// ReleaseLock gives up the lock so another reader can be acquired. Reads
// still waiting fail with ErrReaderReleased. Releasing twice is a no-op.
func (r *Reader[T]) ReleaseLock() {
	s := r.stream
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.released {
		return
	}
	r.released = true
	if !r.attached {
		return
	}
	r.settleAllLocked(readResult[T]{err: pferrors.ErrReaderReleased})
	r.detachLocked()
	s.reader = nil
}

// Closed returns a channel that is closed once the reader no longer holds
// the lock, because it was released or because the stream closed or errored.
func (r *Reader[T]) Closed() <-chan struct{} {
	return r.closed
}

// Cancel cancels the stream through the lock. See Stream.Cancel.
func (r *Reader[T]) Cancel(ctx context.Context, reason error) error {
	s := r.stream
	s.mu.Lock()
	if r.released {
		s.mu.Unlock()
		return pferrors.ErrReaderReleased
	}
	return s.cancelLocked(ctx, reason)
}

func (r *Reader[T]) pendingLocked() bool {
	return len(r.requests) > 0
}

func (r *Reader[T]) fulfillLocked(res readResult[T]) {
	req := r.requests[0]
	r.requests[0] = nil
	r.requests = r.requests[1:]
	req.ch <- res
}

func (r *Reader[T]) settleAllLocked(res readResult[T]) {
	for _, req := range r.requests {
		req.ch <- res
	}
	r.requests = nil
}

func (r *Reader[T]) withdrawLocked(req *readRequest[T]) bool {
	for i, pending := range r.requests {
		if pending == req {
			r.requests = append(r.requests[:i], r.requests[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Reader[T]) detachLocked() {
	r.attached = false
	close(r.closed)
}
