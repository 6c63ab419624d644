package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/vnykmshr/pipeflow/pkg/streaming/pipe"
	"github.com/vnykmshr/pipeflow/pkg/streaming/queuing"
	"github.com/vnykmshr/pipeflow/pkg/streaming/readable"
	"github.com/vnykmshr/pipeflow/pkg/streaming/sinks"
	"github.com/vnykmshr/pipeflow/pkg/streaming/sources"
	"github.com/vnykmshr/pipeflow/pkg/streaming/transform"
)

func intSlice(size int) []int {
	data := make([]int, size)
	for i := range data {
		data[i] = i
	}
	return data
}

// BenchmarkCollect measures draining a slice source.
func BenchmarkCollect(b *testing.B) {
	for _, size := range []int{10, 100, 1000, 10000} {
		data := intSlice(size)
		b.Run(sizeLabel(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				s, _ := sources.FromSlice(data)
				_, _ = pipe.Collect(context.Background(), s)
			}
		})
	}
}

// BenchmarkHighWaterMark measures how read-ahead affects a drained source.
func BenchmarkHighWaterMark(b *testing.B) {
	const size = 1000
	data := intSlice(size)

	for _, hwm := range []float64{1, 16, 256} {
		b.Run(fmt.Sprintf("hwm_%g", hwm), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				next := 0
				s, _ := readable.NewWithConfig(&readable.Source[int]{
					Pull: func(_ context.Context, c *readable.Controller[int]) error {
						for next < len(data) && c.DesiredSize() > 0 {
							if err := c.Enqueue(data[next]); err != nil {
								return err
							}
							next++
						}
						if next == len(data) {
							return c.Close()
						}
						return nil
					},
				}, readable.Config[int]{Name: "bench", Strategy: queuing.CountStrategy[int](hwm)})
				_, _ = pipe.Collect(context.Background(), s)
			}
		})
	}
}

// BenchmarkThrough measures a map stage between source and collector.
func BenchmarkThrough(b *testing.B) {
	for _, size := range []int{100, 1000} {
		data := intSlice(size)
		b.Run(sizeLabel(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				ctx := context.Background()
				s, _ := sources.FromSlice(data)
				double, _ := transform.Map(func(n int) int { return n * 2 })
				_, _ = pipe.Collect(ctx, pipe.Through(ctx, s, double))
			}
		})
	}
}

// BenchmarkPipeTo measures copying a source into a collecting sink.
func BenchmarkPipeTo(b *testing.B) {
	data := intSlice(1000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s, _ := sources.FromSlice(data)
		w, _ := sinks.NewCollector[int]().Stream()
		_ = pipe.To(context.Background(), s, w, pipe.Options{})
	}
}

// BenchmarkTee measures reading both branches of a tee.
func BenchmarkTee(b *testing.B) {
	data := intSlice(1000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s, _ := sources.FromSlice(data)
		left, right, _ := s.Tee()
		done := make(chan struct{})
		go func() {
			_, _ = pipe.Collect(context.Background(), left)
			close(done)
		}()
		_, _ = pipe.Collect(context.Background(), right)
		<-done
	}
}

func sizeLabel(size int) string {
	switch {
	case size >= 1000:
		return fmt.Sprintf("%dK", size/1000)
	default:
		return fmt.Sprintf("%d", size)
	}
}
