package redisio

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	pferrors "github.com/vnykmshr/pipeflow/pkg/common/errors"
	"github.com/vnykmshr/pipeflow/pkg/common/validation"
	"github.com/vnykmshr/pipeflow/pkg/metrics"
	"github.com/vnykmshr/pipeflow/pkg/streaming/queuing"
	"github.com/vnykmshr/pipeflow/pkg/streaming/readable"
	"github.com/vnykmshr/pipeflow/pkg/streaming/writable"
)

const module = "redisio"

// SourceConfig configures ListSource.
type SourceConfig struct {
	// Redis is the client to pop from. It is not closed by the stream.
	Redis redis.UniversalClient

	// Key is the list to consume.
	Key string

	// PollTimeout bounds each blocking pop. Redis counts it in whole seconds.
	// Unless the client has ContextTimeoutEnabled, a canceled stream stops
	// only once the pop in progress times out.
	PollTimeout time.Duration

	// CloseWhenEmpty closes the stream when a pop times out instead of
	// waiting for more entries.
	CloseWhenEmpty bool

	// Strategy decides how many entries are popped ahead of the consumer.
	// Popped entries are removed from Redis, so keep it small. A zero
	// high-water mark is raised to the default, as nothing would be popped.
	Strategy queuing.Strategy[string]

	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// DefaultSourceConfig returns a source configuration for key.
func DefaultSourceConfig(client redis.UniversalClient, key string) SourceConfig {
	return SourceConfig{
		Redis:       client,
		Key:         key,
		PollTimeout: time.Second,
		Strategy:    queuing.DefaultStrategy[string](),
	}
}

// ListSource creates a stream that pops entries from the head of a Redis
// list. Entries are only popped while the stream wants more data, so a slow
// consumer leaves the backlog in Redis.
func ListSource(config SourceConfig) (*readable.Stream[string], error) {
	if err := validation.ValidateNotNil(module, "Redis", config.Redis); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty(module, "Key", config.Key); err != nil {
		return nil, err
	}
	if config.PollTimeout < time.Second {
		return nil, pferrors.NewValidationError(module, "PollTimeout", config.PollTimeout, "must be at least 1s").
			WithHint("Redis blocking pops have one second resolution")
	}
	if config.Strategy.HighWaterMark == 0 {
		config.Strategy.HighWaterMark = queuing.DefaultHighWaterMark
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	logger := config.Logger.Named(module).With(zap.String("key", config.Key))
	client, key := config.Redis, config.Key

	src := &readable.Source[string]{
		Pull: func(ctx context.Context, c *readable.Controller[string]) error {
			for {
				res, err := client.BLPop(ctx, config.PollTimeout, key).Result()
				if ctx.Err() != nil {
					// The stream is finished; anything popped now is lost
					// to it, so hand it back.
					if err == nil && len(res) == 2 {
						_ = client.LPush(context.WithoutCancel(ctx), key, res[1]).Err()
					}
					return nil
				}
				if errors.Is(err, redis.Nil) {
					if config.CloseWhenEmpty {
						logger.Debug("list drained, closing")
						return c.Close()
					}
					continue
				}
				if err != nil {
					return pferrors.NewOperationError(module, "pop", err).WithContext(key)
				}
				return c.Enqueue(res[1])
			}
		},
	}

	return readable.NewWithConfig(src, readable.Config[string]{
		Name:     "redis:" + key,
		Strategy: config.Strategy,
		Logger:   config.Logger,
		Metrics:  config.Metrics,
	})
}

// SinkConfig configures ListSink.
type SinkConfig struct {
	// Redis is the client to push with. It is not closed by the stream.
	Redis redis.UniversalClient

	// Key is the list to append to.
	Key string

	// MaxLen trims the list to its newest MaxLen entries after each push.
	// Zero keeps everything.
	MaxLen int64

	// TTL refreshes the list's expiry after each push. Zero leaves it alone.
	TTL time.Duration

	Strategy queuing.Strategy[string]
	Logger   *zap.Logger
	Metrics  *metrics.Registry
}

// DefaultSinkConfig returns a sink configuration for key.
func DefaultSinkConfig(client redis.UniversalClient, key string) SinkConfig {
	return SinkConfig{
		Redis:    client,
		Key:      key,
		Strategy: queuing.DefaultStrategy[string](),
	}
}

// ListSink creates a stream that appends every chunk to a Redis list. The
// push, trim and expiry of a chunk run in one transaction.
func ListSink(config SinkConfig) (*writable.Stream[string], error) {
	if err := validation.ValidateNotNil(module, "Redis", config.Redis); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty(module, "Key", config.Key); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative(module, "MaxLen", float64(config.MaxLen)); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative(module, "TTL", float64(config.TTL)); err != nil {
		return nil, err
	}
	client, key := config.Redis, config.Key

	sink := &writable.Sink[string]{
		Write: func(ctx context.Context, chunk string) error {
			_, err := client.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.RPush(ctx, key, chunk)
				if config.MaxLen > 0 {
					p.LTrim(ctx, key, -config.MaxLen, -1)
				}
				if config.TTL > 0 {
					p.Expire(ctx, key, config.TTL)
				}
				return nil
			})
			if err != nil {
				return pferrors.NewOperationError(module, "push", err).WithContext(key)
			}
			return nil
		},
	}

	return writable.NewWithConfig(sink, writable.Config[string]{
		Name:     "redis:" + key,
		Strategy: config.Strategy,
		Logger:   config.Logger,
		Metrics:  config.Metrics,
	})
}
