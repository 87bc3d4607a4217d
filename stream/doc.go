// Package stream provides a push-based dataflow protocol for composing
// message relays from sources, operators and sinks.
//
// A [Source] starts delivery when it is called with a [Sink]. The sink
// receives three kinds of signal (see [Signal]):
//
//   - Handshake: [Sink.Start] hands the sink a [Talkback] it can use to
//     acknowledge data ([Talkback.Request]) or cancel ([Talkback.Cancel]).
//   - Data: [Sink.Next] carries one value.
//   - End: [Sink.End] signals completion (nil) or failure.
//
// A source never delivers data after End or after its sink cancelled.
// Every source in this module pushes eagerly; Request is an acknowledgement,
// not a demand signal.
//
// # Quick Start
//
//	src := stream.FromValues(1, 2, 3, 4)
//	even := stream.Filter(src, func(i int) bool { return i%2 == 0 })
//	sub := stream.ForEach(ctx, even, func(i int) { fmt.Println(i) })
//	<-sub.Done()
//
// # Categories
//
// Sources: [FromSlice], [FromValues], [FromChan], [FromListener]
//
// Operators: [Filter], [Map], [Tap], [Mute], composed with [Pipe]
//
// Sinks: [Subscribe], [ForEach], [ToSlice]
//
// For stateful operators such as the replay buffer, see the pipe package.
package stream
