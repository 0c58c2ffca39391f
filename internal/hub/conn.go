package hub

// Conn is the transport-level connection the hub consumes. It is supplied by
// an external listener after the handshake completes. Implementations must
// support one concurrent reader and one concurrent writer.
type Conn interface {
	// ReadFrame blocks until the next raw frame arrives. It returns an error
	// when the peer closes the connection or the transport fails.
	ReadFrame() ([]byte, error)

	// WriteFrame sends one raw frame to the peer.
	WriteFrame(data []byte) error

	// Ping sends a transport-level keepalive probe.
	Ping() error

	// WriteClose tells the peer the connection is closing and why. The
	// connection must still be Closed afterwards.
	WriteClose(reason string) error

	// Close releases the transport resources. Safe to call more than once.
	Close() error
}
