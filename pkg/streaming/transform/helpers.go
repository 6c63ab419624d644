package transform

// Map returns a transform stream that emits fn(chunk) for every written chunk.
func Map[W, R any](fn func(W) R) (*Stream[W, R], error) {
	return New(Transformer[W, R]{
		Transform: func(chunk W, enqueue func(R) error, done func()) error {
			if err := enqueue(fn(chunk)); err != nil {
				return err
			}
			done()
			return nil
		},
	})
}

// Filter returns a transform stream that passes on the chunks keep accepts.
func Filter[T any](keep func(T) bool) (*Stream[T, T], error) {
	return New(Transformer[T, T]{
		Transform: func(chunk T, enqueue func(T) error, done func()) error {
			if keep(chunk) {
				if err := enqueue(chunk); err != nil {
					return err
				}
			}
			done()
			return nil
		},
	})
}
