// Package session owns client<->server session helpers layered over the wire channel.
//
// Ownership boundary:
// - connect/read/write timeout defaults
// - retry/backoff primitives
// - the bounded, shutdown-abortable retry state machine
package session
