package readable

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
	"github.com/vnykmshr/pipeflow/pkg/metrics"
	"github.com/vnykmshr/pipeflow/pkg/streaming/queuing"
)

const module = "readable"

// State is the lifecycle state of a readable stream.
type State int

const (
	// StateReadable is the live state: chunks can be enqueued and read.
	StateReadable State = iota
	// StateClosed is terminal. Every chunk was read or discarded.
	StateClosed
	// StateErrored is terminal. The stream keeps the error that failed it.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateReadable:
		return "readable"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Source is the underlying data source of a readable stream. Every hook is
// optional.
//
// Hooks run on their own goroutine and never while the stream is locked, so
// they may call back into the Controller freely. Start and Pull receive a
// context that is cancelled once the stream closes or errors.
type Source[T any] struct {
	// Start runs once, right after construction. No pull happens before it returns.
	Start func(ctx context.Context, c *Controller[T]) error

	// Pull is called whenever the stream wants more data. At most one call is
	// outstanding at a time. A returned error errors the stream.
	Pull func(ctx context.Context, c *Controller[T]) error

	// Cancel is called when a consumer cancels the stream, with the
	// consumer's context.
	Cancel func(ctx context.Context, reason error) error
}

// Config holds configuration for a readable stream.
type Config[T any] struct {
	// Name identifies the stream in logs and metrics.
	Name string

	// Strategy decides how chunks are sized and when backpressure applies.
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

// Stream is a backpressure-aware readable stream.
//
// Data enters through the Controller handed to the Source and leaves through
// the single Reader that holds the stream's lock.
type Stream[T any] struct {
	mu sync.Mutex

	config   Config[T]
	strategy queuing.Strategy[T]
	queue    *queuing.Queue[T]
	source   *Source[T]

	state          State
	storedErr      error
	closeRequested bool
	started        bool
	pulling        bool
	pullAgain      bool

	controller *Controller[T]
	reader     *Reader[T]

	startedCh chan struct{}
	startErr  error

	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
	obs    *metrics.Observer
}

// New creates a readable stream over src with the default configuration.
func New[T any](src *Source[T]) (*Stream[T], error) {
	return NewWithConfig(src, DefaultConfig[T]())
}

// NewWithConfig creates a readable stream over src and starts it.
func NewWithConfig[T any](src *Source[T], config Config[T]) (*Stream[T], error) {
	if src == nil {
		return nil, pferrors.ErrNoSource
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

	source := *src
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream[T]{
		config:    config,
		strategy:  config.Strategy,
		queue:     queuing.NewQueue[T](),
		source:    &source,
		state:     StateReadable,
		startedCh: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger.Named(module).With(zap.String("stream", config.Name)),
		obs:       config.Metrics.Observe(metrics.KindReadable, config.Name),
	}
	s.controller = &Controller[T]{stream: s}

	if source.Start == nil {
		s.mu.Lock()
		s.settleStartLocked(nil)
		s.mu.Unlock()
	} else {
		go s.runStart(source.Start)
	}
	return s, nil
}

func (s *Stream[T]) runStart(start func(context.Context, *Controller[T]) error) {
	err := pferrors.Recover(func() error { return start(s.ctx, s.controller) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleStartLocked(err)
}

func (s *Stream[T]) settleStartLocked(err error) {
	s.started = true
	if err != nil {
		err = pferrors.NewOperationError(module, "start", err)
		s.startErr = err
		s.logger.Warn("start failed", zap.Error(err))
		s.obs.Error("start")
		s.errorLocked(err)
	} else {
		s.pullIfNeededLocked()
	}
	close(s.startedCh)
}

// Started returns a channel that is closed once the source's Start hook returns.
func (s *Stream[T]) Started() <-chan struct{} {
	return s.startedCh
}

// StartErr returns the error the Start hook failed with, if any.
func (s *Stream[T]) StartErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startErr
}

// State returns the current lifecycle state.
func (s *Stream[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DesiredSize returns how much more the queue can take before backpressure
// applies. It is zero once the stream is closed or errored.
func (s *Stream[T]) DesiredSize() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desiredSizeLocked()
}

// QueueSize returns the total size of the queued chunks.
func (s *Stream[T]) QueueSize() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.TotalSize()
}

// Locked reports whether a reader holds the stream.
func (s *Stream[T]) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader != nil
}

// HasSource reports whether the stream is still attached to its source.
// The source is dropped once the stream closes or errors.
func (s *Stream[T]) HasSource() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source != nil
}

// StoredError returns the error the stream failed with, or nil.
func (s *Stream[T]) StoredError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storedErr
}

// Cancel signals that the consumer has lost interest. The queue is discarded,
// the stream closes and the source's Cancel hook runs with reason.
//
// Cancel fails with ErrLocked while a reader holds the stream; use
// Reader.Cancel instead. It is a no-op on a closed stream and returns the
// stored error on an errored one.
func (s *Stream[T]) Cancel(ctx context.Context, reason error) error {
	s.mu.Lock()
	if s.reader != nil {
		s.mu.Unlock()
		return pferrors.ErrLocked
	}
	return s.cancelLocked(ctx, reason)
}

// GetReader locks the stream to a new Reader.
func (s *Stream[T]) GetReader() (*Reader[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reader != nil {
		return nil, pferrors.ErrLocked
	}
	if s.state == StateErrored {
		return nil, pferrors.Errored(s.storedErr)
	}
	return s.acquireReaderLocked(), nil
}

func (s *Stream[T]) acquireReaderLocked() *Reader[T] {
	r := &Reader[T]{
		stream: s,
		closed: make(chan struct{}),
	}
	if s.state == StateReadable {
		r.attached = true
		s.reader = r
	} else {
		close(r.closed)
	}
	return r
}

// cancelLocked is entered with s.mu held and returns with it released.
func (s *Stream[T]) cancelLocked(ctx context.Context, reason error) error {
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil
	case StateErrored:
		err := pferrors.Errored(s.storedErr)
		s.mu.Unlock()
		return err
	}
	if s.source == nil {
		s.mu.Unlock()
		return pferrors.ErrNoSource
	}
	if reason == nil {
		reason = pferrors.ErrCanceled
	}

	hook := s.source.Cancel
	s.logger.Debug("stream canceled", zap.NamedError("reason", reason))
	s.closeLocked()
	s.mu.Unlock()

	if hook == nil {
		return nil
	}
	if err := pferrors.Recover(func() error { return hook(ctx, reason) }); err != nil {
		s.logger.Warn("cancel hook failed", zap.Error(err))
		s.obs.Error("cancel")
		return pferrors.NewOperationError(module, "cancel", err)
	}
	return nil
}

func (s *Stream[T]) desiredSizeLocked() float64 {
	if s.state != StateReadable {
		return 0
	}
	return queuing.DesiredSize(s.strategy.HighWaterMark, s.queue.TotalSize())
}

func (s *Stream[T]) checkLiveLocked() error {
	switch s.state {
	case StateErrored:
		return pferrors.Errored(s.storedErr)
	case StateClosed:
		return fmt.Errorf("%w: %w", pferrors.ErrNotReadable, pferrors.ErrClosed)
	}
	if s.closeRequested {
		return fmt.Errorf("%w: %w", pferrors.ErrNotReadable, pferrors.ErrCloseRequested)
	}
	return nil
}

func (s *Stream[T]) enqueue(chunk T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLiveLocked(); err != nil {
		return err
	}

	// A waiting read means the queue is empty, so handing the chunk over
	// directly cannot overtake anything.
	if s.reader != nil && s.reader.pendingLocked() {
		s.reader.fulfillLocked(readResult[T]{value: chunk, ok: true})
		s.obs.Enqueued()
		s.obs.Delivered()
		s.pullIfNeededLocked()
		return nil
	}

	size, err := s.strategy.ComputeSize(chunk)
	if err != nil {
		err = pferrors.NewOperationError(module, "size", err)
		s.logger.Warn("chunk size failed", zap.Error(err))
		s.obs.Error("size")
		s.errorLocked(err)
		return err
	}

	if s.desiredSizeLocked() <= 0 {
		s.obs.Backpressure()
	}
	s.queue.Enqueue(chunk, size)
	s.obs.Enqueued()
	s.reportQueueLocked()
	s.pullIfNeededLocked()
	return nil
}

// dequeueLocked takes the oldest chunk and finishes a requested close once
// the queue runs dry.
func (s *Stream[T]) dequeueLocked() (T, bool) {
	chunk, ok := s.queue.Dequeue()
	if !ok {
		return chunk, false
	}
	s.obs.Delivered()
	if s.closeRequested && s.queue.Len() == 0 {
		s.closeLocked()
	} else {
		s.reportQueueLocked()
		s.pullIfNeededLocked()
	}
	return chunk, true
}

func (s *Stream[T]) requestClose() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLiveLocked(); err != nil {
		return err
	}
	s.closeRequested = true
	if s.queue.Len() == 0 {
		s.closeLocked()
	} else {
		s.logger.Debug("close requested", zap.Int("queued", s.queue.Len()))
	}
	return nil
}

func (s *Stream[T]) closeLocked() {
	if s.state != StateReadable {
		return
	}
	s.state = StateClosed
	s.queue.Reset()
	if r := s.reader; r != nil {
		r.settleAllLocked(readResult[T]{})
		r.detachLocked()
		s.reader = nil
	}
	s.finishLocked()
	s.logger.Debug("stream closed")
}

func (s *Stream[T]) errorLocked(err error) error {
	switch s.state {
	case StateErrored:
		return pferrors.Errored(s.storedErr)
	case StateClosed:
		return pferrors.ErrClosed
	}
	if err == nil {
		err = pferrors.ErrErrored
	}

	s.state = StateErrored
	s.storedErr = err
	s.queue.Reset()
	if r := s.reader; r != nil {
		r.settleAllLocked(readResult[T]{err: err})
		r.detachLocked()
		s.reader = nil
	}
	s.finishLocked()
	s.logger.Debug("stream errored", zap.Error(err))
	return nil
}

// finishLocked releases what a terminal stream no longer needs.
func (s *Stream[T]) finishLocked() {
	s.cancel()
	s.source = nil
	s.pullAgain = false
	s.obs.State(s.state.String())
	s.reportQueueLocked()
}

func (s *Stream[T]) reportQueueLocked() {
	s.obs.Queue(s.queue.TotalSize(), s.desiredSizeLocked())
}

// shouldPullLocked reports whether the stream wants more data, ignoring any
// pull already in flight.
func (s *Stream[T]) shouldPullLocked() bool {
	return s.state == StateReadable &&
		s.started &&
		!s.closeRequested &&
		s.desiredSizeLocked() > 0
}

func (s *Stream[T]) allowPullLocked() bool {
	return s.shouldPullLocked() && !s.pulling
}

func (s *Stream[T]) pullIfNeededLocked() {
	if !s.allowPullLocked() {
		if s.pulling && s.shouldPullLocked() {
			s.pullAgain = true
		}
		return
	}
	pull := s.source.Pull
	if pull == nil {
		return
	}

	s.pulling = true
	s.obs.Pull()
	go s.runPull(pull)
}

func (s *Stream[T]) runPull(pull func(context.Context, *Controller[T]) error) {
	err := pferrors.Recover(func() error { return pull(s.ctx, s.controller) })

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pulling = false
	if err != nil {
		if s.state == StateReadable {
			err = pferrors.NewOperationError(module, "pull", err)
			s.logger.Warn("pull failed", zap.Error(err))
			s.obs.Error("pull")
			s.errorLocked(err)
		}
		return
	}
	if s.pullAgain {
		s.pullAgain = false
		s.pullIfNeededLocked()
	}
}
