// Package client is the interactive front end: one Session holding a channel to
// each of the finance, file and audit servers, plus the numbered menu that drives it.
//
// Every operation runs under the bounded retry machine from session, with the
// shutdown context as its cancellation token. A single attempt runs inside a
// critical section so an interrupt cannot abandon a transaction and its audit
// follow-up halfway.
package client
