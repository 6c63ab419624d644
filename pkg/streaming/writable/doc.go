/*
Package writable provides a writable stream that serializes chunks into a
Sink, one write at a time and in order.

	ws, err := writable.New(&writable.Sink[[]byte]{
		Write: func(ctx context.Context, p []byte) error {
			_, err := conn.Write(p)
			return err
		},
		Close: func(ctx context.Context) error {
			return conn.Close()
		},
	})

	if err := ws.Write(ctx, payload); err != nil {
		return err
	}
	return ws.Close(ctx)

Writes that arrive while the sink is busy wait in a queue measured by the
stream's Strategy; DesiredSize tells producers how much room is left. A
failing write errors the stream and every write still waiting fails with the
same error. Abort errors the stream right away, without waiting for the write
in flight, and rejects everything pending with the abort reason.

WriteAsync and CloseAsync return a channel that receives the outcome, for
callers that want to queue several writes before waiting.
*/
package writable
