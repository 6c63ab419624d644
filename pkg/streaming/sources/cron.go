package sources

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
	"github.com/vnykmshr/pipeflow/pkg/streaming/queuing"
	"github.com/vnykmshr/pipeflow/pkg/streaming/readable"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CronOptions configures a tick stream.
type CronOptions struct {
	// TimeZone is used to evaluate the schedule. Defaults to time.Local.
	TimeZone *time.Location

	// Config configures the underlying readable stream.
	Config readable.Config[time.Time]
}

// DefaultCronOptions returns options with a one-tick buffer.
func DefaultCronOptions() CronOptions {
	config := readable.DefaultConfig[time.Time]()
	config.Name = "cron"
	return CronOptions{TimeZone: time.Local, Config: config}
}

// Ticks is a stream of schedule firing times.
//
// The schedule is a push source: a firing while the stream's desired size is
// not positive is dropped rather than queued, so a slow consumer sees the
// latest ticks instead of an ever growing backlog.
type Ticks struct {
	*readable.Stream[time.Time]

	schedule cron.Schedule
	location *time.Location
	dropped  atomic.Int64
}

// Cron creates a tick stream from a cron expression. Both the five field form
// and the form with a leading seconds field are accepted, as are descriptors
// such as "@hourly" and "@every 30s".
func Cron(expr string, opts CronOptions) (*Ticks, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, pferrors.NewValidationError("sources", "cron expression", expr, err.Error()).
			WithHint("use e.g. \"*/5 * * * *\" or \"@every 1m\"")
	}
	return FromSchedule(schedule, opts)
}

// FromSchedule creates a tick stream that fires on schedule. A schedule whose
// Next returns the zero time never fires again.
func FromSchedule(schedule cron.Schedule, opts CronOptions) (*Ticks, error) {
	if schedule == nil {
		return nil, pferrors.NewValidationError("sources", "schedule", nil, "cannot be nil")
	}
	if opts.TimeZone == nil {
		opts.TimeZone = time.Local
	}
	if opts.Config.Name == "" {
		opts.Config.Name = "cron"
	}
	if opts.Config.Strategy.HighWaterMark == 0 {
		// Every firing would be dropped otherwise.
		opts.Config.Strategy.HighWaterMark = queuing.DefaultHighWaterMark
	}

	t := &Ticks{schedule: schedule, location: opts.TimeZone}
	s, err := readable.NewWithConfig(&readable.Source[time.Time]{
		Start: func(ctx context.Context, c *readable.Controller[time.Time]) error {
			go t.run(ctx, c)
			return nil
		},
	}, opts.Config)
	if err != nil {
		return nil, err
	}
	t.Stream = s
	return t, nil
}

// Dropped returns the number of firings discarded under backpressure.
func (t *Ticks) Dropped() int64 {
	return t.dropped.Load()
}

// Next returns the next firing time after now.
func (t *Ticks) Next() time.Time {
	return t.schedule.Next(time.Now().In(t.location))
}

func (t *Ticks) run(ctx context.Context, c *readable.Controller[time.Time]) {
	for {
		next := t.schedule.Next(time.Now().In(t.location))
		if next.IsZero() {
			<-ctx.Done()
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case fired := <-timer.C:
			if c.DesiredSize() <= 0 {
				t.dropped.Add(1)
				continue
			}
			if err := c.Enqueue(fired.In(t.location)); err != nil {
				return
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
