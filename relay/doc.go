// Package relay connects envelope streams to transports.
//
// Sources turn window or runtime messages into envelope streams, sinks post
// envelope streams back onto a transport. Content wires both directions of
// a content relay: editor envelopes from the page reach the extension once
// its panel is showing, and panel visibility flows back to the page.
//
// The keep-alive port opened by Reconnector detects a reloaded extension.
// After every reconnect the runtime sink resubscribes to the replay, so
// the extension first receives every init and the latest state.
package relay
