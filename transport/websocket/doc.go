// Package websocket implements the runtime transport over WebSocket
// connections.
//
// The extension side runs a [Hub], an http.Handler that accepts one
// message socket per tab and any number of keep-alive port sockets:
//
//	GET /?id=<tab>              message socket, binary frames carry data
//	GET /?id=<tab>&port=<name>  port socket, its closure is the disconnect
//
// Content endpoints use [Dial]. A [Client] redials its message socket
// lazily after the hub went away, so a reconnect loop driving
// [Client.Connect] restores both channels.
package websocket
