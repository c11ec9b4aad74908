// Package transport carries rendered frames to a remote viewer over a
// reliable, optionally TLS-secured byte stream.
//
// All I/O is blocking by design: Send and Recv loop internally until the
// requested byte count has been transferred and never return a short
// count silently. There is no retry, cancellation, or timeout machinery
// at this layer; a blocked call is only unblocked by peer action, an
// error, or process termination.
//
// Channels come in two flavors behind one interface: TCPChannel (plain
// or TLS) and WSChannel (WebSocket, for viewers reachable only through
// HTTP proxies). Frames are written with SendFrame/RecvFrame, or queued
// through a Sender, which drains them on a single goroutine and
// preserves the payload ownership-transfer contract.
package transport
