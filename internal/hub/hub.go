package hub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/EstebanBorai/hoth-server/internal/metrics"
	"github.com/EstebanBorai/hoth-server/internal/protocol"
)

const (
	commandBuffer  = 256
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   Conn
	replyChannel chan registerReply
}

type registerReply struct {
	id     uuid.UUID
	writer *clientWriter
	err    error
}

type unregisterCmd struct {
	baseHubCmd
	id uuid.UUID
}

type broadcastCmd struct {
	baseHubCmd
	sender  uuid.UUID
	message protocol.Message
}

type notifyCmd struct {
	baseHubCmd
	id      uuid.UUID
	message protocol.Message
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub owns the connection registry and fans each accepted message out to
// every registered connection except its sender.
type Hub struct {
	cmdCh          chan hubCmd
	clock          clockwork.Clock
	reg            *registry
	sendBufferSize int
	done           chan struct{}
	stopTimeout    time.Duration
}

// New creates a hub and starts its actor goroutine.
// capacity caps concurrent connections (<= 0 means unlimited); registration
// beyond it fails with ErrHubFull. sendBufferSize is the per-connection
// outbound queue length that isolates slow consumers.
func New(capacity, sendBufferSize int, clock clockwork.Clock) *Hub {
	h := &Hub{
		cmdCh:          make(chan hubCmd, commandBuffer),
		clock:          clock,
		reg:            newRegistry(capacity),
		sendBufferSize: sendBufferSize,
		done:           make(chan struct{}),
		stopTimeout:    stopTimeout,
	}
	go h.run()
	return h
}

// Register inserts a connection and returns its freshly allocated id.
// Returns ErrHubFull when the capacity limit is reached; the connection is
// closed in that case.
func (h *Hub) Register(conn Conn) (uuid.UUID, error) {
	id, _, err := h.register(conn)
	return id, err
}

// register additionally hands back the connection's writer, so the session
// read loop can record inbound activity without a hub round trip.
func (h *Hub) register(conn Conn) (uuid.UUID, *clientWriter, error) {
	replyCh := make(chan registerReply, 1)
	h.cmdCh <- registerCmd{connection: conn, replyChannel: replyCh}

	// Use timeout to prevent blocking forever if the hub is stuck
	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply.id, reply.writer, reply.err
	case <-timer.Chan():
		return uuid.Nil, nil, fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection. Unregistering an absent id is a no-op.
func (h *Hub) Unregister(id uuid.UUID) {
	h.cmdCh <- unregisterCmd{id: id}
}

// Broadcast fans message out to every registered connection except sender.
// Fire-and-forget: per-recipient delivery failures are isolated and never
// surface to the sender.
func (h *Hub) Broadcast(sender uuid.UUID, message protocol.Message) {
	h.cmdCh <- broadcastCmd{sender: sender, message: message}
}

// Notify enqueues a hub-generated message for a single connection.
func (h *Hub) Notify(id uuid.UUID, message protocol.Message) {
	h.cmdCh <- notifyCmd{id: id, message: message}
}

// ClientCount returns the number of registered connections.
// Returns -1 if the command times out.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, closing all client connections with a close frame.
// Blocks until the actor goroutine has exited or the stop timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timeout := h.clock.NewTimer(h.stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", h.stopTimeout)
		metrics.HubStopTimeoutsTotal.Inc()
	}
}

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			h.closeAllClients("hub failure")
		}
	}()
	defer close(h.done)

	// Track command channel depth every second
	depthTicker := h.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(h.cmdCh)
			metrics.HubCommandChannelDepth.Set(float64(depth))

			if depth > commandBuffer*8/10 {
				slog.Warn("Command channel near capacity",
					"depth", depth,
					"capacity", cap(h.cmdCh),
				)
			}

		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case unregisterCmd:
				h.handleUnregister(c.id)
			case broadcastCmd:
				h.handleBroadcast(c)
			case notifyCmd:
				h.handleNotify(c)
			case clientCountCmd:
				c.replyChannel <- h.reg.len()
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	cw := newClientWriter(c.connection, h.sendBufferSize, h.clock)

	id, err := h.reg.register(cw)
	if err != nil {
		slog.Warn("Rejecting connection: hub at capacity", "capacity", h.reg.capacity)
		metrics.HubConnectionsTotal.WithLabelValues("hub_full").Inc()
		cw.stopGraceful("hub at connection capacity")
		c.replyChannel <- registerReply{err: err}
		return
	}

	metrics.HubConnectionsTotal.WithLabelValues("accepted").Inc()
	metrics.HubConnectedClients.Set(float64(h.reg.len()))

	slog.Debug("Client registered", "connection_id", id.String(), "total_clients", h.reg.len())
	c.replyChannel <- registerReply{id: id, writer: cw}
}

func (h *Hub) handleUnregister(id uuid.UUID) {
	cw := h.reg.unregister(id)
	if cw == nil {
		return
	}

	cw.stop()
	metrics.HubConnectedClients.Set(float64(h.reg.len()))
	slog.Debug("Client unregistered", "connection_id", id.String(), "remaining_clients", h.reg.len())
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	start := h.clock.Now()

	// Encode once, amortized across all recipients
	frame := protocol.Encode(c.message)

	var slow []uuid.UUID
	for _, e := range h.reg.snapshot() {
		if e.id == c.sender {
			continue
		}
		if e.writer.enqueue(frame) {
			metrics.HubFramesDeliveredTotal.Inc()
		} else {
			metrics.HubFramesDroppedTotal.Inc()
			slow = append(slow, e.id)
		}
	}

	for _, id := range slow {
		slog.Warn("Evicting slow client", "connection_id", id.String())
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(id)
	}

	metrics.HubBroadcastsTotal.Inc()
	metrics.HubBroadcastDuration.Observe(h.clock.Since(start).Seconds())
}

func (h *Hub) handleNotify(c notifyCmd) {
	cw := h.reg.lookup(c.id)
	if cw == nil {
		return
	}

	if !cw.enqueue(protocol.Encode(c.message)) {
		metrics.HubFramesDroppedTotal.Inc()
		slog.Debug("Dropped notice for slow client", "connection_id", c.id.String())
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "clients", h.reg.len())
	h.closeAllClients("Server shutting down")
	slog.Info("Hub shutdown complete")
}

// closeAllClients closes every connection with the given reason.
// Used during graceful shutdown and panic recovery.
func (h *Hub) closeAllClients(reason string) {
	for _, e := range h.reg.snapshot() {
		e.writer.stopGraceful(reason)
		h.reg.unregister(e.id)
	}
	metrics.HubConnectedClients.Set(0)
}
