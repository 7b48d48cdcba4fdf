// Package channel frames protocol requests and responses over one TCP connection.
//
// A Channel owns exactly one endpoint: either a listening socket (SideListening),
// which only accepts, or a connected stream (SideConnected), which exchanges
// length-prefixed bodies. Every read and write transfers the full header and body
// or fails with a *TransportError; there is no partial-message state. A failed
// channel must be closed and never reused.
package channel
