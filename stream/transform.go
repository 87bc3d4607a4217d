package stream

import "reflect"

// Map applies handle to each value. Handshake and end pass unchanged.
func Map[In, Out any](
	src Source[In],
	handle func(In) Out,
) Source[Out] {
	return func(sink Sink[Out]) {
		src(&relay[In, Out]{
			sink: sink,
			next: func(r *relay[In, Out], v In) {
				r.sink.Next(handle(v))
			},
		})
	}
}

// Tap calls handle for each non-zero value before passing it on unchanged.
// Zero values pass without calling handle.
func Tap[T any](
	src Source[T],
	handle func(T),
) Source[T] {
	return func(sink Sink[T]) {
		src(&relay[T, T]{
			sink: sink,
			next: func(r *relay[T, T], v T) {
				if handle != nil && !isZero(v) {
					handle(v)
				}
				r.sink.Next(v)
			},
		})
	}
}

// Tapping returns Tap as an Operator for use with Pipe.
func Tapping[T any](handle func(T)) Operator[T] {
	return func(src Source[T]) Source[T] {
		return Tap(src, handle)
	}
}

// Mute discards all data and acknowledges it immediately. Handshake and
// end still reach the sink, so a muted branch keeps its place in a
// composition.
func Mute[T any](
	src Source[T],
) Source[T] {
	return func(sink Sink[T]) {
		src(&relay[T, T]{
			sink: sink,
			next: func(r *relay[T, T], _ T) {
				r.ack()
			},
		})
	}
}

func isZero[T any](v T) bool {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return rv.IsZero()
}
