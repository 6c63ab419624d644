package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/vnykmshr/pipeflow/internal/testutil"
	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
	"github.com/vnykmshr/pipeflow/pkg/streaming/readable"
)

func drain[T any](t *testing.T, s *readable.Stream[T]) ([]T, error) {
	t.Helper()
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	reader, err := s.GetReader()
	testutil.AssertNoError(t, err)
	var out []T
	for {
		v, ok, err := reader.Read(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

func TestFromSlice(t *testing.T) {
	tests := []struct {
		name  string
		items []int
		want  string
	}{
		{"empty", nil, "[]"},
		{"single", []int{7}, "[7]"},
		{"several", []int{1, 2, 3, 4, 5}, "[1 2 3 4 5]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromSlice(tt.items)
			testutil.AssertNoError(t, err)
			got, err := drain(t, s)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, fmt.Sprint(got), tt.want)
			testutil.AssertEqual(t, s.State(), readable.StateClosed)
		})
	}
}

func TestFromSliceIsLazy(t *testing.T) {
	s, err := FromSlice([]int{1, 2, 3, 4})
	testutil.AssertNoError(t, err)

	// With the default high-water mark only one item is read ahead.
	testutil.AssertEventually(t, func() bool { return s.QueueSize() == 1 })
	testutil.AssertEqual(t, s.DesiredSize(), float64(0))

	testutil.AssertNoError(t, s.Cancel(context.Background(), nil))
}

func TestFromChannel(t *testing.T) {
	ch := make(chan string, 3)
	ch <- "a"
	ch <- "b"
	ch <- "c"
	close(ch)

	s, err := FromChannel(ch)
	testutil.AssertNoError(t, err)
	got, err := drain(t, s)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, strings.Join(got, ""), "abc")
}

func TestFromChannelCancel(t *testing.T) {
	ch := make(chan int)
	s, err := FromChannel(ch)
	testutil.AssertNoError(t, err)
	testutil.Receive(t, s.Started())

	// The pull is blocked on the channel; canceling must release it.
	testutil.AssertNoError(t, s.Cancel(context.Background(), nil))
	testutil.AssertEqual(t, s.State(), readable.StateClosed)
}

func TestGenerate(t *testing.T) {
	var n atomic.Int32
	s, err := Generate(func() int32 { return n.Add(1) })
	testutil.AssertNoError(t, err)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	reader, err := s.GetReader()
	testutil.AssertNoError(t, err)
	for want := int32(1); want <= 3; want++ {
		v, ok, err := reader.Read(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, ok, true)
		testutil.AssertEqual(t, v, want)
	}
	testutil.AssertNoError(t, reader.Cancel(ctx, nil))

	// The generator runs at most a high-water mark ahead of the reader.
	testutil.AssertEqual(t, n.Load() <= 4, true)
}

func TestEmpty(t *testing.T) {
	s, err := Empty[string]()
	testutil.AssertNoError(t, err)
	got, err := drain(t, s)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(got), 0)
}

func TestFromReader(t *testing.T) {
	s, err := FromReader(strings.NewReader("hello world"), ReaderConfig{ChunkSize: 4})
	testutil.AssertNoError(t, err)

	got, err := drain(t, s)
	testutil.AssertNoError(t, err)
	var parts []string
	for _, b := range got {
		parts = append(parts, string(b))
	}
	testutil.AssertEqual(t, strings.Join(parts, "|"), "hell|o wo|rld")
}

func TestFromReaderError(t *testing.T) {
	errRead := errors.New("disk on fire")
	r := io.MultiReader(strings.NewReader("ok"), iotest.ErrReader(errRead))

	s, err := FromReader(r, DefaultReaderConfig())
	testutil.AssertNoError(t, err)

	got, err := drain(t, s)
	testutil.AssertErrorIs(t, err, errRead)
	testutil.AssertEqual(t, s.State(), readable.StateErrored)
	// Chunks still queued when the stream errors are discarded.
	testutil.AssertEqual(t, len(got) <= 1, true)
}

func TestFromReaderCancelClosesReader(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	s, err := FromReader(pr, ReaderConfig{ChunkSize: 16})
	testutil.AssertNoError(t, err)
	testutil.Receive(t, s.Started())

	testutil.AssertNoError(t, s.Cancel(context.Background(), nil))
	_, err = pw.Write([]byte("late"))
	testutil.AssertErrorIs(t, err, io.ErrClosedPipe)
}

func TestFromReaderValidation(t *testing.T) {
	tests := []struct {
		name   string
		r      io.Reader
		config ReaderConfig
	}{
		{"nil reader", nil, DefaultReaderConfig()},
		{"zero chunk", strings.NewReader(""), ReaderConfig{}},
		{"negative buffer", strings.NewReader(""), ReaderConfig{ChunkSize: 1, BufferedBytes: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromReader(tt.r, tt.config)
			testutil.AssertErrorIs(t, err, pferrors.ErrInvalidConfiguration)
		})
	}
}

// stepSchedule fires every interval, limit times.
type stepSchedule struct {
	interval time.Duration
	limit    int32
	fired    atomic.Int32
}

func (s *stepSchedule) Next(t time.Time) time.Time {
	if s.fired.Add(1) > s.limit {
		return time.Time{}
	}
	return t.Add(s.interval)
}

func TestCronInvalidExpression(t *testing.T) {
	_, err := Cron("not a schedule", DefaultCronOptions())
	testutil.AssertErrorIs(t, err, pferrors.ErrInvalidConfiguration)

	_, err = FromSchedule(nil, DefaultCronOptions())
	testutil.AssertErrorIs(t, err, pferrors.ErrInvalidConfiguration)
}

func TestCronExpressions(t *testing.T) {
	for _, expr := range []string{"*/5 * * * *", "0 30 9 * * 1-5", "@hourly", "@every 1m"} {
		t.Run(expr, func(t *testing.T) {
			ticks, err := Cron(expr, DefaultCronOptions())
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, ticks.Next().After(time.Now()), true)
			testutil.AssertNoError(t, ticks.Cancel(context.Background(), nil))
		})
	}
}

func TestFromScheduleDelivers(t *testing.T) {
	opts := DefaultCronOptions()
	opts.TimeZone = time.UTC
	ticks, err := FromSchedule(&stepSchedule{interval: 5 * time.Millisecond, limit: 100}, opts)
	testutil.AssertNoError(t, err)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	reader, err := ticks.GetReader()
	testutil.AssertNoError(t, err)
	var last time.Time
	for i := 0; i < 3; i++ {
		tick, ok, err := reader.Read(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, ok, true)
		testutil.AssertEqual(t, tick.Location(), time.UTC)
		testutil.AssertEqual(t, tick.After(last), true)
		last = tick
	}
	testutil.AssertNoError(t, reader.Cancel(ctx, nil))
}

func TestFromScheduleDropsUnderBackpressure(t *testing.T) {
	ticks, err := FromSchedule(&stepSchedule{interval: time.Millisecond, limit: 1000}, DefaultCronOptions())
	testutil.AssertNoError(t, err)

	testutil.AssertEventually(t, func() bool { return ticks.Dropped() > 0 })
	testutil.AssertEqual(t, ticks.QueueSize(), float64(1))

	testutil.AssertNoError(t, ticks.Cancel(context.Background(), nil))
}
