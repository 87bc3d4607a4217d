package stream

// Filter passes through values for which handle returns true. Dropped
// values are acknowledged upstream. Handshake and end pass unchanged.
func Filter[T any](
	src Source[T],
	handle func(T) bool,
) Source[T] {
	return func(sink Sink[T]) {
		src(&relay[T, T]{
			sink: sink,
			next: func(r *relay[T, T], v T) {
				if handle(v) {
					r.sink.Next(v)
					return
				}
				r.ack()
			},
		})
	}
}

// Filtering returns Filter as an Operator for use with Pipe.
func Filtering[T any](handle func(T) bool) Operator[T] {
	return func(src Source[T]) Source[T] {
		return Filter(src, handle)
	}
}
