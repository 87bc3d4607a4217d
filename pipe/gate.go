package pipe

import "github.com/fxsml/devbridge/stream"

// Gate passes values from src only while open returns true. Closed-gate
// values are dropped and acknowledged.
func Gate[T any](src stream.Source[T], open func() bool) stream.Source[T] {
	return stream.Filter(src, func(T) bool { return open() })
}
