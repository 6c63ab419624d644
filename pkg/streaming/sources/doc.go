/*
Package sources provides ready-made readable streams.

FromSlice, FromChannel, Generate and Empty cover in-memory data. FromReader
turns an io.Reader into a byte stream sized by chunk length, reading only as
fast as the consumer drains it. Cron and FromSchedule emit the firing times
of a cron schedule:

	ticks, err := sources.Cron("@every 10s", sources.DefaultCronOptions())
	reader, _ := ticks.GetReader()
	for {
		at, ok, err := reader.Read(ctx)
		...
	}

A tick stream cannot pause a clock, so firings that arrive while the stream
is full are dropped and counted by Dropped.
*/
package sources
