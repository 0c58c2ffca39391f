// Package protocol implements the wire codec for chat messages.
//
// The set of message kinds is closed: unknown kinds are rejected at decode time
// so downstream components never re-validate. Decoding is pure and performs no I/O.
package protocol
