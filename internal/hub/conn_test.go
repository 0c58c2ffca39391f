package hub

import (
	"io"
	"sync"
	"time"
)

// fakeConn is an in-memory Conn for tests. Frames written by the hub are
// recorded; inbound frames are fed through a channel. Close unblocks pending
// reads and writes, mirroring real transport behavior.
type fakeConn struct {
	mu          sync.Mutex
	written     [][]byte
	pings       int
	closed      bool
	closeReason string

	inbound      chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	blockWrites  bool
	writeStarted chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound:      make(chan []byte, 16),
		done:         make(chan struct{}),
		writeStarted: make(chan struct{}, 64),
	}
}

func (c *fakeConn) ReadFrame() ([]byte, error) {
	select {
	case frame := <-c.inbound:
		return frame, nil
	case <-c.done:
		return nil, io.EOF
	}
}

func (c *fakeConn) WriteFrame(data []byte) error {
	select {
	case c.writeStarted <- struct{}{}:
	default:
	}

	if c.blockWrites {
		<-c.done
		return io.ErrClosedPipe
	}

	select {
	case <-c.done:
		return io.ErrClosedPipe
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return nil
}

func (c *fakeConn) WriteClose(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeReason = reason
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) feed(raw string) {
	c.inbound <- []byte(raw)
}

func (c *fakeConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

func (c *fakeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) closedWith() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeReason
}

// waitForFrames polls until the connection has recorded at least n frames.
func waitForFrames(c *fakeConn, n int) bool {
	for i := 0; i < 500; i++ {
		if len(c.frames()) >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// waitForClientCount polls until the hub reports the expected count.
func waitForClientCount(h *Hub, expected int) bool {
	for i := 0; i < 500; i++ {
		if h.ClientCount() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}
