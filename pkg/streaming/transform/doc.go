/*
Package transform couples a writable and a readable stream through a
Transformer, so that a stage can sit between a producer and a consumer.

	upper, err := transform.New(transform.Transformer[string, string]{
		Transform: func(s string, enqueue func(string) error, done func()) error {
			defer done()
			return enqueue(strings.ToUpper(s))
		},
	})

	go func() {
		_ = upper.Writable.Write(ctx, "hello")
		_ = upper.Writable.Close(ctx)
	}()

	reader, _ := upper.Readable.GetReader()
	s, ok, err := reader.Read(ctx) // "HELLO"

Only one written chunk is handled at a time: a write completes when its
Transform calls done, and the next write is not dispatched before that. A
Transform that never calls done leaves its write pending; SlotState reports
SlotTransforming in that case, and aborting the writable side releases it.

The halves fail together. An error from Transform or Flush errors both;
cancelling the readable side errors the writable side with the cancel
reason, and aborting the writable side errors the readable side.
*/
package transform
