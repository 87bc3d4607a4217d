// Package pipe provides stateful stream operators.
//
// Unlike the stream package which provides stateless operations, pipe
// components own state across deliveries and have a lifecycle.
//
// # Replay
//
// [Replay] multicasts one upstream source to any number of subscribers and
// retains selected values so that a subscriber attaching late receives a
// reconstructed view before live values resume:
//
//	r, _ := pipe.NewReplay(pipe.ReplayConfig[message.Envelope]{
//		Policies: []pipe.Policy{
//			{Type: "init", Pick: pipe.PickAll},
//			{Type: "updateState", Pick: pipe.PickLatest},
//		},
//		Key: func(e message.Envelope) string { return string(e.Type) },
//	})
//	shared, _ := r.Replay(upstream)
//	stream.ForEach(ctx, shared, render)
//
// # Gate
//
// [Gate] passes values only while a condition holds, evaluated per value.
package pipe
