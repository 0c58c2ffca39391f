package hub

import (
	"errors"

	"github.com/google/uuid"
)

// ErrHubFull is returned by Register when the connection capacity is reached.
var ErrHubFull = errors.New("hub connection capacity reached")

// entry is one (id, connection) pair of a registry snapshot.
type entry struct {
	id     uuid.UUID
	writer *clientWriter
}

// registry is the table of live connections, keyed by connection id and
// iterated in registration order. It is confined to the Hub's run goroutine,
// which serializes all mutations against snapshot reads.
type registry struct {
	clients  map[uuid.UUID]*clientWriter
	order    []uuid.UUID
	capacity int
}

// newRegistry creates a registry. capacity <= 0 means unlimited.
func newRegistry(capacity int) *registry {
	return &registry{
		clients:  make(map[uuid.UUID]*clientWriter),
		capacity: capacity,
	}
}

// register allocates a fresh id for the connection and inserts it.
func (r *registry) register(cw *clientWriter) (uuid.UUID, error) {
	if r.capacity > 0 && len(r.clients) >= r.capacity {
		return uuid.Nil, ErrHubFull
	}

	id := uuid.New()
	r.clients[id] = cw
	r.order = append(r.order, id)
	return id, nil
}

// unregister removes the id and returns its connection.
// Removing an absent id is a no-op and returns nil.
func (r *registry) unregister(id uuid.UUID) *clientWriter {
	cw, exists := r.clients[id]
	if !exists {
		return nil
	}

	delete(r.clients, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return cw
}

func (r *registry) lookup(id uuid.UUID) *clientWriter {
	return r.clients[id]
}

// snapshot copies the current membership in registration order. Mutations
// after the call do not affect previously returned snapshots.
func (r *registry) snapshot() []entry {
	entries := make([]entry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, entry{id: id, writer: r.clients[id]})
	}
	return entries
}

func (r *registry) len() int {
	return len(r.clients)
}
