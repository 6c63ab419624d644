package sinks_test

import (
	"context"
	"fmt"
	"os"

	"github.com/vnykmshr/pipeflow/pkg/streaming/sinks"
)

func ExampleToWriter() {
	ws, err := sinks.ToWriter(os.Stdout, sinks.DefaultWriterConfig())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	ctx := context.Background()
	_ = ws.Write(ctx, []byte("streamed "))
	_ = ws.Write(ctx, []byte("to stdout\n"))
	_ = ws.Close(ctx)

	// Output:
	// streamed to stdout
}

func ExampleCollector() {
	c := sinks.NewCollector[int]()
	ws, _ := c.Stream()

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_ = ws.Write(ctx, i*i)
	}
	_ = ws.Close(ctx)

	<-c.Done()
	fmt.Println(c.Items())

	// Output:
	// [1 4 9]
}
