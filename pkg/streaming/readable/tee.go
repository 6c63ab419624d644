package readable

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
)

// tee fans one upstream reader out to two branch streams. Whichever branch
// pulls first reads upstream, and the chunk is enqueued on both branches.
type tee[T any] struct {
	reader   *Reader[T]
	branches [2]*Stream[T]
	ready    chan struct{}

	ctx  context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	reading   bool
	readAgain bool
	canceled  [2]bool
	reasons   [2]error
}

// Tee splits the stream into two branches that each see every chunk. The
// stream stays locked to the tee for good.
//
// Both branches share a single upstream read loop. Cancelling one branch
// closes only that branch; the upstream source is cancelled once both have
// been cancelled, with the two reasons joined. Upstream close and error are
// mirrored on both branches.
func (s *Stream[T]) Tee() (*Stream[T], *Stream[T], error) {
	s.mu.Lock()
	switch {
	case s.state == StateErrored:
		err := pferrors.Errored(s.storedErr)
		s.mu.Unlock()
		return nil, nil, err
	case s.state == StateClosed:
		s.mu.Unlock()
		return nil, nil, pferrors.ErrClosed
	case s.source == nil:
		s.mu.Unlock()
		return nil, nil, pferrors.ErrNoSource
	case s.reader != nil:
		s.mu.Unlock()
		return nil, nil, pferrors.ErrLocked
	}
	reader := s.acquireReaderLocked()
	config := s.config
	s.mu.Unlock()

	ctx, stop := context.WithCancel(context.Background())
	t := &tee[T]{
		reader: reader,
		ready:  make(chan struct{}),
		ctx:    ctx,
		stop:   stop,
	}

	for i := range t.branches {
		branch := i
		branchConfig := config
		branchConfig.Name = fmt.Sprintf("%s.tee%d", config.Name, branch+1)

		b, err := NewWithConfig(&Source[T]{
			Start: t.waitReady,
			Pull:  t.pull,
			Cancel: func(ctx context.Context, reason error) error {
				return t.cancelBranch(ctx, branch, reason)
			},
		}, branchConfig)
		if err != nil {
			stop()
			reader.ReleaseLock()
			return nil, nil, err
		}
		t.branches[branch] = b
	}

	close(t.ready)
	go t.watch()

	s.logger.Debug("stream teed")
	return t.branches[0], t.branches[1], nil
}

// waitReady holds the branches back until both exist.
func (t *tee[T]) waitReady(ctx context.Context, _ *Controller[T]) error {
	select {
	case <-t.ready:
	case <-ctx.Done():
	case <-t.ctx.Done():
	}
	return nil
}

func (t *tee[T]) pull(_ context.Context, _ *Controller[T]) error {
	t.mu.Lock()
	if t.reading {
		t.readAgain = true
		t.mu.Unlock()
		return nil
	}
	t.reading = true
	t.mu.Unlock()

	for {
		chunk, ok, err := t.reader.Read(t.ctx)
		switch {
		case err != nil:
			if t.ctx.Err() == nil {
				t.errorBranches(err)
			}
		case !ok:
			t.closeBranches()
		default:
			t.enqueueBranches(chunk)
		}

		t.mu.Lock()
		if err != nil || !ok || !t.readAgain {
			t.reading = false
			t.readAgain = false
			t.mu.Unlock()
			return nil
		}
		t.readAgain = false
		t.mu.Unlock()
	}
}

func (t *tee[T]) enqueueBranches(chunk T) {
	t.mu.Lock()
	canceled := t.canceled
	t.mu.Unlock()

	for i, b := range t.branches {
		if !canceled[i] {
			// A branch closed in the meantime just misses the chunk.
			_ = b.controller.Enqueue(chunk)
		}
	}
}

func (t *tee[T]) closeBranches() {
	for _, b := range t.branches {
		_ = b.controller.Close()
	}
}

func (t *tee[T]) errorBranches(err error) {
	for _, b := range t.branches {
		_ = b.controller.Error(err)
	}
	t.stop()
}

func (t *tee[T]) cancelBranch(ctx context.Context, branch int, reason error) error {
	t.mu.Lock()
	t.canceled[branch] = true
	t.reasons[branch] = reason
	both := t.canceled[0] && t.canceled[1]
	t.mu.Unlock()

	if !both {
		return nil
	}
	t.stop()
	return t.reader.Cancel(ctx, errors.Join(t.reasons[0], t.reasons[1]))
}

// watch mirrors an upstream error onto the branches even when neither is
// pulling at the time.
func (t *tee[T]) watch() {
	select {
	case <-t.reader.Closed():
	case <-t.ctx.Done():
		return
	}
	if err := t.reader.stream.StoredError(); err != nil {
		t.errorBranches(err)
	}
}
