// Package server runs the accept loop shared by every netbank server.
//
// Each accepted connection becomes one long-lived task on a fixed worker pool.
// The task owns the connection for its lifetime, so requests from one peer are
// handled strictly in arrival order. On shutdown the listener closes, idle peers
// get a grace period to send Quit, remaining reads are interrupted, and the pool
// drains before Serve returns.
package server
