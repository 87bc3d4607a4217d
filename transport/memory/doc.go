// Package memory provides in-process transports for tests and embedding.
//
// A [Window] is a same-window message bus; [Window.Frame] adds a frame with
// a different origin to the same bus. A [Network] connects [Endpoint]s:
// content endpoints created with [Network.Endpoint] and one extension
// endpoint created with [Network.Host]. Closing the host disconnects every
// port opened with [Endpoint.Connect], which lets tests model an extension
// reload.
package memory
