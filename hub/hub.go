// Package hub tracks live subscribers per room and fans newly stored
// ciphertexts out to them. It is independent of the crypto layer: payloads
// are opaque bytes, already sealed by the message path.
package hub

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Conn is one live transport session. The hub never chooses a transport;
// whatever can push bytes to a client satisfies this.
type Conn interface {
	Send(payload []byte) error
}

// State is the lifecycle of a registered connection.
type State int

const (
	Connecting State = iota
	Open
	Closed
)

// Hub is an explicitly constructed registry with a defined lifecycle:
// created at process start, torn down with Close at shutdown. It is never
// package-level state.
//
// The room map is guarded by its own RWMutex while each room carries its own
// lock, so contended broadcasts in one room never block connect/disconnect
// in another.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*room
	log   *slog.Logger
}

// dead is set under mu when the room is removed from the registry, so a
// Connect holding a stale pointer knows to re-resolve instead of registering
// into an orphan the broadcaster can no longer reach.
type room struct {
	mu      sync.Mutex
	dead    bool
	members map[Conn]State
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms: make(map[uuid.UUID]*room),
		log:   log,
	}
}

// Connect registers a connection under roomID and transitions it to Open.
func (h *Hub) Connect(conn Conn, roomID uuid.UUID) {
	for {
		h.mu.Lock()
		r, ok := h.rooms[roomID]
		if !ok {
			r = &room{members: make(map[Conn]State)}
			h.rooms[roomID] = r
		}
		h.mu.Unlock()

		r.mu.Lock()
		if r.dead {
			// The last member left and dropIfEmpty removed this room while we
			// held only the pointer. Re-resolve against the registry.
			r.mu.Unlock()
			continue
		}
		r.members[conn] = Open
		r.mu.Unlock()
		return
	}
}

// Disconnect deregisters a connection. It is idempotent: a connection
// already absent is a no-op, because broadcast-triggered pruning and a
// client-initiated close can race.
func (h *Hub) Disconnect(conn Conn, roomID uuid.UUID) {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.members, conn)
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		h.dropIfEmpty(roomID, r)
	}
}

// Broadcast delivers payload to every connection currently registered under
// roomID. A room with no connections is a no-op. Individual delivery
// failures never fail the broadcast: the dead connection is pruned, logged,
// and skipped by subsequent broadcasts.
//
// The send phase runs outside the room lock: membership is snapshot under
// the lock, then delivery happens lock-free, so a stalled connection cannot
// block connect/disconnect on the same room.
func (h *Hub) Broadcast(payload []byte, roomID uuid.UUID) {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	r.mu.Lock()
	snapshot := make([]Conn, 0, len(r.members))
	for conn, state := range r.members {
		if state == Open {
			snapshot = append(snapshot, conn)
		}
	}
	r.mu.Unlock()

	for _, conn := range snapshot {
		if err := conn.Send(payload); err != nil {
			h.log.Warn(fmt.Sprintf("Dropping dead connection in room %s", roomID),
				"error", err)
			h.Disconnect(conn, roomID)
		}
	}
}

// Count reports how many connections are registered under roomID.
func (h *Hub) Count(roomID uuid.UUID) int {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Close tears the hub down, dropping every registration.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, r := range h.rooms {
		r.mu.Lock()
		r.dead = true
		r.members = make(map[Conn]State)
		r.mu.Unlock()
		delete(h.rooms, id)
	}
}

// dropIfEmpty removes the room entry once its last member left, so idle
// rooms do not leak registry memory over time.
func (h *Hub) dropIfEmpty(roomID uuid.UUID, r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.rooms[roomID]; ok && current == r {
		r.mu.Lock()
		if len(r.members) == 0 {
			r.dead = true
			delete(h.rooms, roomID)
		}
		r.mu.Unlock()
	}
}
