package transform

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
	"github.com/vnykmshr/pipeflow/pkg/metrics"
	"github.com/vnykmshr/pipeflow/pkg/streaming/queuing"
	"github.com/vnykmshr/pipeflow/pkg/streaming/readable"
	"github.com/vnykmshr/pipeflow/pkg/streaming/writable"
)

const module = "transform"

// Transformer converts written chunks of type W into zero or more readable
// chunks of type R.
type Transformer[W, R any] struct {
	// Transform handles one written chunk. It may call enqueue any number of
	// times and must call done exactly once, now or later, to complete the
	// write and let the next chunk in. A write whose done is never called
	// stays pending until the stream is aborted.
	//
	// A returned error errors both halves of the stream.
	Transform func(chunk W, enqueue func(R) error, done func()) error

	// Flush runs when the writable side closes. It may enqueue final chunks
	// and should call close to close the readable side. If nil, the readable
	// side is closed directly.
	Flush func(enqueue func(R) error, close func() error) error

	// WritableStrategy applies to written chunks. If nil, the default strategy is used.
	WritableStrategy *queuing.Strategy[W]

	// ReadableStrategy applies to transformed chunks. If nil, the default strategy is used.
	ReadableStrategy *queuing.Strategy[R]
}

// Config holds configuration for a transform stream.
type Config struct {
	// Name identifies the stream in logs and metrics. The halves are named
	// "<name>.writable" and "<name>.readable".
	Name string

	// Logger is shared by both halves. If nil, logging is disabled.
	Logger *zap.Logger

	// Metrics is the registry both halves report to. If nil, no metrics are recorded.
	Metrics *metrics.Registry
}

// DefaultConfig returns the default transform configuration.
func DefaultConfig() Config {
	return Config{Name: module}
}

// SlotState describes the single chunk slot between the writable and the
// readable side.
type SlotState int

const (
	// SlotEmpty means no written chunk is waiting.
	SlotEmpty SlotState = iota
	// SlotPending means a chunk was written but its transform has not begun.
	SlotPending
	// SlotTransforming means Transform was called and done has not been yet.
	SlotTransforming
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotPending:
		return "pending"
	case SlotTransforming:
		return "transforming"
	default:
		return "unknown"
	}
}

// Stream couples a writable and a readable stream through a Transformer.
// At most one written chunk is in flight at any time.
type Stream[W, R any] struct {
	// Writable accepts the chunks to transform.
	Writable *writable.Stream[W]
	// Readable yields the transformed chunks.
	Readable *readable.Stream[R]

	transformer Transformer[W, R]

	mu      sync.Mutex
	slot    SlotState
	chunk   W
	written chan struct{}
	began   time.Time

	// Set by the start hooks before the matching channel is closed.
	readableCtrl  *readable.Controller[R]
	readableReady chan struct{}
	writableCtrl  *writable.Controller
	writableReady chan struct{}

	logger *zap.Logger
	obs    *metrics.Observer
}

// New creates a transform stream with the default configuration.
func New[W, R any](t Transformer[W, R]) (*Stream[W, R], error) {
	return NewWithConfig(t, DefaultConfig())
}

// NewWithConfig creates a transform stream and binds its two halves.
func NewWithConfig[W, R any](t Transformer[W, R], config Config) (*Stream[W, R], error) {
	if t.Transform == nil {
		return nil, pferrors.NewValidationError(module, "Transform", nil, "cannot be nil").
			WithHint("provide a Transform function")
	}
	wStrategy := queuing.DefaultStrategy[W]()
	if t.WritableStrategy != nil {
		wStrategy = *t.WritableStrategy
	}
	rStrategy := queuing.DefaultStrategy[R]()
	if t.ReadableStrategy != nil {
		rStrategy = *t.ReadableStrategy
	}
	if err := wStrategy.Validate(module); err != nil {
		return nil, err
	}
	if err := rStrategy.Validate(module); err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = module
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	ts := &Stream[W, R]{
		transformer:   t,
		readableReady: make(chan struct{}),
		writableReady: make(chan struct{}),
		logger:        config.Logger.Named(module).With(zap.String("stream", config.Name)),
		obs:           config.Metrics.Observe(metrics.KindTransform, config.Name),
	}

	rs, err := readable.NewWithConfig(&readable.Source[R]{
		Start:  ts.startReadable,
		Pull:   ts.pull,
		Cancel: ts.cancelReadable,
	}, readable.Config[R]{
		Name:     config.Name + ".readable",
		Strategy: rStrategy,
		Logger:   config.Logger,
		Metrics:  config.Metrics,
	})
	if err != nil {
		return nil, err
	}

	ws, err := writable.NewWithConfig(&writable.Sink[W]{
		Start: ts.startWritable,
		Write: ts.write,
		Close: ts.close,
		Abort: ts.abort,
	}, writable.Config[W]{
		Name:     config.Name + ".writable",
		Strategy: wStrategy,
		Logger:   config.Logger,
		Metrics:  config.Metrics,
	})
	if err != nil {
		ts.discardReadable(rs, err)
		return nil, err
	}

	ts.Readable = rs
	ts.Writable = ws
	return ts, nil
}

// discardReadable cancels a readable half whose writable half could not be
// built. Nothing will ever wait on writableReady, so it is released here.
func (ts *Stream[W, R]) discardReadable(rs *readable.Stream[R], reason error) {
	close(ts.writableReady)
	_ = rs.Cancel(context.Background(), reason)
}

// SlotState returns the state of the chunk slot. A stream stuck in
// SlotTransforming is waiting for a Transform to call done.
func (ts *Stream[W, R]) SlotState() SlotState {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.slot
}

func (ts *Stream[W, R]) startReadable(_ context.Context, c *readable.Controller[R]) error {
	ts.readableCtrl = c
	close(ts.readableReady)
	return nil
}

// startWritable holds writes back until the readable side can take output.
func (ts *Stream[W, R]) startWritable(ctx context.Context, c *writable.Controller) error {
	ts.writableCtrl = c
	close(ts.writableReady)

	select {
	case <-ts.readableReady:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ts *Stream[W, R]) readableController() *readable.Controller[R] {
	<-ts.readableReady
	return ts.readableCtrl
}

// writableController returns nil if the writable half failed to construct.
func (ts *Stream[W, R]) writableController() *writable.Controller {
	<-ts.writableReady
	return ts.writableCtrl
}

func (ts *Stream[W, R]) enqueue(chunk R) error {
	return ts.readableController().Enqueue(chunk)
}

func (ts *Stream[W, R]) write(ctx context.Context, chunk W) error {
	written := make(chan struct{})

	ts.mu.Lock()
	ts.chunk = chunk
	ts.slot = SlotPending
	ts.written = written
	ts.began = time.Now()
	ts.mu.Unlock()

	if err := ts.attempt(); err != nil {
		return err
	}

	select {
	case <-written:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// attempt runs Transform on the pending chunk unless a transform is already
// under way.
func (ts *Stream[W, R]) attempt() error {
	ts.mu.Lock()
	if ts.slot != SlotPending {
		ts.mu.Unlock()
		return nil
	}
	ts.slot = SlotTransforming
	chunk := ts.chunk
	var zero W
	ts.chunk = zero
	written := ts.written
	ts.mu.Unlock()

	var once sync.Once
	done := func() {
		once.Do(func() { ts.transformDone(written) })
	}

	err := pferrors.Recover(func() error {
		return ts.transformer.Transform(chunk, ts.enqueue, done)
	})
	if err != nil {
		err = pferrors.NewOperationError(module, "transform", err)
		ts.fail("transform", err)
		return err
	}
	return nil
}

func (ts *Stream[W, R]) transformDone(written chan struct{}) {
	ts.mu.Lock()
	if ts.written != written {
		ts.mu.Unlock()
		return
	}
	ts.slot = SlotEmpty
	ts.written = nil
	ts.obs.Transform(time.Since(ts.began))
	ts.mu.Unlock()

	close(written)
}

func (ts *Stream[W, R]) pull(_ context.Context, _ *readable.Controller[R]) error {
	ts.mu.Lock()
	pending := ts.slot == SlotPending
	ts.mu.Unlock()

	if pending {
		return ts.attempt()
	}
	return nil
}

func (ts *Stream[W, R]) close(_ context.Context) error {
	c := ts.readableController()
	if ts.transformer.Flush == nil {
		return c.Close()
	}
	err := pferrors.Recover(func() error {
		return ts.transformer.Flush(c.Enqueue, c.Close)
	})
	if err != nil {
		err = pferrors.NewOperationError(module, "flush", err)
		ts.fail("flush", err)
		return err
	}
	return nil
}

func (ts *Stream[W, R]) cancelReadable(_ context.Context, reason error) error {
	ts.logger.Debug("readable side canceled, erroring writable side", zap.NamedError("reason", reason))
	if c := ts.writableController(); c != nil {
		c.Error(reason)
	}
	return nil
}

func (ts *Stream[W, R]) abort(_ context.Context, reason error) error {
	ts.logger.Debug("writable side aborted, erroring readable side", zap.NamedError("reason", reason))
	_ = ts.readableController().Error(reason)
	return nil
}

// fail errors both halves. The readable side goes first so that a writer
// woken by the failure already sees it downstream.
func (ts *Stream[W, R]) fail(op string, err error) {
	ts.mu.Lock()
	ts.slot = SlotEmpty
	ts.written = nil
	ts.mu.Unlock()

	ts.logger.Warn(op+" failed", zap.Error(err))
	ts.obs.Error(op)
	_ = ts.readableController().Error(err)
	if c := ts.writableController(); c != nil {
		c.Error(err)
	}
}
