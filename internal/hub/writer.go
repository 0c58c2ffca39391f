package hub

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/EstebanBorai/hoth-server/internal/metrics"
	"github.com/EstebanBorai/hoth-server/internal/protocol"
)

const (
	pingInterval    = 30 * time.Second
	idleTimeout     = 5 * time.Minute
	idleWarningTime = 4 * time.Minute // Warn 1 minute before disconnect
)

// clientWriter owns one connection's outbound delivery queue and drains it to
// the transport on a dedicated goroutine. Enqueueing never blocks; a full
// queue is reported to the caller instead.
//
// Connections that stop submitting messages are warned and then disconnected;
// answering keepalive pings alone does not count as activity.
type clientWriter struct {
	conn        Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup

	activityMu   sync.Mutex
	lastActivity time.Time
	warningSent  bool
}

func newClientWriter(conn Conn, bufferSize int, clock clockwork.Clock) *clientWriter {
	cw := &clientWriter{
		conn:         conn,
		clock:        clock,
		sendChannel:  make(chan []byte, bufferSize),
		doneChannel:  make(chan struct{}),
		lastActivity: clock.Now(),
	}
	cw.wg.Add(1)
	go cw.run()
	return cw
}

// enqueue adds a frame to the delivery queue. Returns false when the queue is
// full, which the hub treats as an isolated per-recipient delivery failure.
func (cw *clientWriter) enqueue(frame []byte) bool {
	select {
	case cw.sendChannel <- frame:
		return true
	default:
		return false
	}
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case frame := <-cw.sendChannel:
			start := cw.clock.Now()
			if err := cw.conn.WriteFrame(frame); err != nil {
				return
			}
			metrics.WebSocketMessageSendDuration.Observe(cw.clock.Since(start).Seconds())
		case <-ticker.Chan():
			// Check for idle timeout before sending ping
			if cw.checkIdleTimeout() {
				metrics.WebSocketIdleDisconnects.Inc()
				_ = cw.conn.Close()
				return
			}

			if err := cw.conn.Ping(); err != nil {
				// Ping failed - client likely disconnected
				metrics.WebSocketPingFailures.Inc()
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

// recordActivity marks the connection as active, resetting the idle clock.
func (cw *clientWriter) recordActivity() {
	cw.activityMu.Lock()
	defer cw.activityMu.Unlock()
	cw.lastActivity = cw.clock.Now()
	cw.warningSent = false
}

// checkIdleTimeout reports whether the connection has been idle past the
// limit. Approaching the limit, a single warning notice is written; the run
// goroutine is the only writer, so writing directly here is safe.
func (cw *clientWriter) checkIdleTimeout() bool {
	cw.activityMu.Lock()
	idleDuration := cw.clock.Since(cw.lastActivity)
	warningSent := cw.warningSent
	cw.activityMu.Unlock()

	if idleDuration >= idleTimeout {
		return true
	}

	if !warningSent && idleDuration >= idleWarningTime {
		warning := protocol.Encode(protocol.NewErrorNotice("connection idle, disconnecting in 1 minute"))
		if err := cw.conn.WriteFrame(warning); err == nil {
			cw.activityMu.Lock()
			cw.warningSent = true
			cw.activityMu.Unlock()
		}
	}

	return false
}

// stop tears the connection down without a close frame. Used when the peer is
// already gone.
func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		_ = cw.conn.Close()
	})
	cw.wg.Wait()
}

// stopGraceful sends a close frame with a reason before closing. The run
// goroutine is stopped first so the close frame is the only writer.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		cw.wg.Wait()

		_ = cw.conn.WriteClose(reason)
		_ = cw.conn.Close()
	})
	cw.wg.Wait()
}
