// Package hub implements the connection registry and broadcast engine using
// the actor pattern.
//
// A single goroutine owns the registry and processes commands from a channel
// (no mutexes on the hot path). Each connection gets its own write goroutine
// draining a bounded delivery queue, so one slow client never stalls the
// fan-out to the rest.
package hub
