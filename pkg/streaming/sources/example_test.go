package sources_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/vnykmshr/pipeflow/pkg/streaming/sources"
)

func ExampleFromSlice() {
	s, _ := sources.FromSlice([]string{"alpha", "beta", "gamma"})

	ctx := context.Background()
	reader, _ := s.GetReader()
	for {
		v, ok, err := reader.Read(ctx)
		if err != nil || !ok {
			break
		}
		fmt.Println(v)
	}

	// Output:
	// alpha
	// beta
	// gamma
}

func ExampleFromReader() {
	s, _ := sources.FromReader(strings.NewReader("abcdefg"), sources.ReaderConfig{ChunkSize: 3})

	ctx := context.Background()
	reader, _ := s.GetReader()
	for {
		chunk, ok, _ := reader.Read(ctx)
		if !ok {
			break
		}
		fmt.Printf("%q\n", chunk)
	}

	// Output:
	// "abc"
	// "def"
	// "g"
}
