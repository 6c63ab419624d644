package writable

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
	"github.com/vnykmshr/pipeflow/pkg/metrics"
	"github.com/vnykmshr/pipeflow/pkg/streaming/queuing"
)

const module = "writable"

// State is the lifecycle state of a writable stream.
type State int

const (
	// StateWritable is the live state.
	StateWritable State = iota
	// StateClosed is terminal. The sink was closed successfully.
	StateClosed
	// StateErrored is terminal. A write or close failed, or the stream was aborted.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateWritable:
		return "writable"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Sink is the underlying destination of a writable stream. Every hook is
// optional; a missing hook succeeds immediately.
//
// Hooks run on their own goroutine. Start, Write and Close receive a context
// that is cancelled when the stream errors or is aborted.
type Sink[T any] struct {
	// Start runs once after construction. No write is dispatched before it returns.
	Start func(ctx context.Context, c *Controller) error

	// Write consumes one chunk. Calls never overlap.
	Write func(ctx context.Context, chunk T) error

	// Close runs after every queued write has completed.
	Close func(ctx context.Context) error

	// Abort runs when the producer aborts the stream, with the producer's context.
	Abort func(ctx context.Context, reason error) error
}

// Controller lets a Sink fail its own stream.
type Controller struct {
	fail func(err error)
}

// Error errors the stream with err. Pending writes are rejected with it.
// It does nothing once the stream is closed or errored.
func (c *Controller) Error(err error) {
	c.fail(err)
}

// Config holds configuration for a writable stream.
type Config[T any] struct {
	// Name identifies the stream in logs and metrics.
	Name string

	// Strategy sizes written chunks and sets the high-water mark reported
	// through DesiredSize.
	Strategy queuing.Strategy[T]

	// Logger receives state transitions at debug level and hook failures at
	// warn level. If nil, logging is disabled.
	Logger *zap.Logger

	// Metrics is the registry the stream reports to. If nil, no metrics are recorded.
	Metrics *metrics.Registry
}

// DefaultConfig returns a configuration with the default strategy.
func DefaultConfig[T any]() Config[T] {
	return Config[T]{
		Name:     module,
		Strategy: queuing.DefaultStrategy[T](),
	}
}

// request is a queued write, or the close marker when close is set.
type request[T any] struct {
	chunk   T
	close   bool
	done    chan error
	settled bool
}

func newRequest[T any]() *request[T] {
	return &request[T]{done: make(chan error, 1)}
}

// settle completes the request exactly once. Callers hold the stream lock.
func (r *request[T]) settle(err error) {
	if r.settled {
		return
	}
	r.settled = true
	r.done <- err
}

// Stream is a writable stream that serializes chunks into a Sink.
type Stream[T any] struct {
	mu sync.Mutex

	name     string
	strategy queuing.Strategy[T]
	sink     Sink[T]

	state          State
	storedErr      error
	closeRequested bool
	started        bool

	// queue holds pending requests. A write stays queued while in flight so
	// its size counts until the sink finishes with it.
	queue    *queuing.Queue[*request[T]]
	inFlight *request[T]

	controller *Controller
	startedCh  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
	obs    *metrics.Observer
}

// New creates a writable stream over sink with the default configuration.
func New[T any](sink *Sink[T]) (*Stream[T], error) {
	return NewWithConfig(sink, DefaultConfig[T]())
}

// NewWithConfig creates a writable stream over sink and starts it.
func NewWithConfig[T any](sink *Sink[T], config Config[T]) (*Stream[T], error) {
	if sink == nil {
		return nil, pferrors.NewValidationError(module, "sink", nil, "cannot be nil").
			WithHint("provide a Sink, even an empty one")
	}
	if err := config.Strategy.Validate(module); err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = module
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream[T]{
		name:      config.Name,
		strategy:  config.Strategy,
		sink:      *sink,
		state:     StateWritable,
		queue:     queuing.NewQueue[*request[T]](),
		startedCh: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger.Named(module).With(zap.String("stream", config.Name)),
		obs:       config.Metrics.Observe(metrics.KindWritable, config.Name),
	}
	s.controller = &Controller{fail: s.failFromSink}

	if s.sink.Start == nil {
		s.mu.Lock()
		s.settleStartLocked(nil)
		s.mu.Unlock()
	} else {
		go s.runStart(s.sink.Start)
	}
	return s, nil
}

func (s *Stream[T]) runStart(start func(context.Context, *Controller) error) {
	err := pferrors.Recover(func() error { return start(s.ctx, s.controller) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleStartLocked(err)
}

func (s *Stream[T]) settleStartLocked(err error) {
	s.started = true
	if err != nil {
		if s.state == StateWritable {
			s.hookFailedLocked("start", err)
		}
	} else {
		s.advanceLocked()
	}
	close(s.startedCh)
}

// Started returns a channel that is closed once the sink's Start hook returns.
func (s *Stream[T]) Started() <-chan struct{} {
	return s.startedCh
}

// State returns the current lifecycle state.
func (s *Stream[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DesiredSize returns how much more can be written before backpressure
// applies. It is zero once the stream is closed or errored.
func (s *Stream[T]) DesiredSize() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desiredSizeLocked()
}

// QueueSize returns the total size of the writes not yet completed.
func (s *Stream[T]) QueueSize() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.TotalSize()
}

// StoredError returns the error the stream failed with, or nil.
func (s *Stream[T]) StoredError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storedErr
}

// WriteAsync queues chunk for the sink and returns a channel that receives
// the outcome of that write. Writes reach the sink one at a time, in order.
//
// Writing after close was requested, or to a closed or errored stream,
// fails immediately through the returned channel.
func (s *Stream[T]) WriteAsync(chunk T) <-chan error {
	req := newRequest[T]()
	req.chunk = chunk

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritableLocked(); err != nil {
		req.settle(err)
		return req.done
	}

	size, err := s.strategy.ComputeSize(chunk)
	if err != nil {
		err = pferrors.NewOperationError(module, "size", err)
		req.settle(err)
		s.hookFailedLocked("size", err)
		return req.done
	}

	if s.desiredSizeLocked() <= 0 {
		s.obs.Backpressure()
	}
	s.queue.Enqueue(req, size)
	s.obs.Enqueued()
	s.reportQueueLocked()
	s.advanceLocked()
	return req.done
}

// Write writes chunk and waits for the sink to finish with it. If ctx ends
// first, Write returns ctx.Err(); the chunk stays queued and is still written.
func (s *Stream[T]) Write(ctx context.Context, chunk T) error {
	select {
	case err := <-s.WriteAsync(chunk):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseAsync requests that the stream close once every queued write has
// completed, and returns a channel that receives the outcome.
func (s *Stream[T]) CloseAsync() <-chan error {
	req := newRequest[T]()
	req.close = true

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritableLocked(); err != nil {
		req.settle(err)
		return req.done
	}

	s.closeRequested = true
	s.queue.Enqueue(req, 0)
	s.logger.Debug("close requested", zap.Int("queued", s.queue.Len()-1))
	s.advanceLocked()
	return req.done
}

// Close requests a close and waits for the sink to finish closing.
func (s *Stream[T]) Close(ctx context.Context) error {
	select {
	case err := <-s.CloseAsync():
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Abort errors the stream with reason without waiting for the write in
// flight. Every pending write and close is rejected with reason, then the
// sink's Abort hook runs.
//
// Abort is a no-op on a closed stream and returns the stored error of an
// errored one.
func (s *Stream[T]) Abort(ctx context.Context, reason error) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil
	case StateErrored:
		err := pferrors.Errored(s.storedErr)
		s.mu.Unlock()
		return err
	}
	if reason == nil {
		reason = pferrors.ErrAborted
	}

	s.logger.Debug("stream aborted", zap.NamedError("reason", reason))
	s.errorLocked(reason)
	hook := s.sink.Abort
	s.mu.Unlock()

	if hook == nil {
		return nil
	}
	if err := pferrors.Recover(func() error { return hook(ctx, reason) }); err != nil {
		s.logger.Warn("abort hook failed", zap.Error(err))
		s.obs.Error("abort")
		return pferrors.NewOperationError(module, "abort", err)
	}
	return nil
}

func (s *Stream[T]) checkWritableLocked() error {
	switch s.state {
	case StateErrored:
		return pferrors.Errored(s.storedErr)
	case StateClosed:
		return fmt.Errorf("%w: %w", pferrors.ErrNotWritable, pferrors.ErrClosed)
	}
	if s.closeRequested {
		return fmt.Errorf("%w: %w", pferrors.ErrNotWritable, pferrors.ErrCloseRequested)
	}
	return nil
}

func (s *Stream[T]) desiredSizeLocked() float64 {
	if s.state != StateWritable {
		return 0
	}
	return queuing.DesiredSize(s.strategy.HighWaterMark, s.queue.TotalSize())
}

func (s *Stream[T]) reportQueueLocked() {
	s.obs.Queue(s.queue.TotalSize(), s.desiredSizeLocked())
}

// advanceLocked dispatches the next request if the sink is idle.
func (s *Stream[T]) advanceLocked() {
	if !s.started || s.inFlight != nil || s.state != StateWritable {
		return
	}
	req, ok := s.queue.Peek()
	if !ok {
		return
	}

	s.inFlight = req
	if req.close {
		s.queue.Dequeue()
		go s.runClose(req)
		return
	}
	go s.runWrite(req)
}

func (s *Stream[T]) runWrite(req *request[T]) {
	var err error
	began := time.Now()
	if write := s.sink.Write; write != nil {
		err = pferrors.Recover(func() error { return write(s.ctx, req.chunk) })
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.obs.Write(time.Since(began))
	s.inFlight = nil
	if s.state != StateWritable {
		// Aborted or errored meanwhile; the request was already rejected.
		return
	}

	s.queue.Dequeue()
	if err != nil {
		err = pferrors.NewOperationError(module, "write", err)
		req.settle(err)
		s.hookFailedLocked("write", err)
		return
	}
	req.settle(nil)
	s.obs.Delivered()
	s.reportQueueLocked()
	s.advanceLocked()
}

func (s *Stream[T]) runClose(req *request[T]) {
	var err error
	if closeFn := s.sink.Close; closeFn != nil {
		err = pferrors.Recover(func() error { return closeFn(s.ctx) })
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = nil
	if s.state != StateWritable {
		return
	}
	if err != nil {
		err = pferrors.NewOperationError(module, "close", err)
		req.settle(err)
		s.hookFailedLocked("close", err)
		return
	}

	s.state = StateClosed
	req.settle(nil)
	s.finishLocked()
	s.logger.Debug("stream closed")
}

func (s *Stream[T]) failFromSink(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateWritable {
		return
	}
	if err == nil {
		err = pferrors.ErrErrored
	}
	s.errorLocked(err)
}

func (s *Stream[T]) hookFailedLocked(op string, err error) {
	s.logger.Warn(op+" failed", zap.Error(err))
	s.obs.Error(op)
	s.errorLocked(err)
}

// errorLocked moves a live stream to StateErrored and rejects every request
// still waiting, including the one in flight.
func (s *Stream[T]) errorLocked(err error) {
	if s.state != StateWritable {
		return
	}
	s.state = StateErrored
	s.storedErr = err
	if s.inFlight != nil {
		s.inFlight.settle(err)
	}
	for _, req := range s.queue.Reset() {
		req.settle(err)
	}
	s.finishLocked()
	s.logger.Debug("stream errored", zap.Error(err))
}

func (s *Stream[T]) finishLocked() {
	s.cancel()
	s.obs.State(s.state.String())
	s.reportQueueLocked()
}
