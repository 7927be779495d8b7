package services

import (
	"sync"

	"github.com/google/uuid"
)

// EpochKeyTable holds each active room's cleartext epoch key, in memory
// only, for the room's active lifetime. It is never persisted; after a
// restart the key survives only inside the members' distribution entries.
//
// Holding the key server-side is the server-mediated re-encapsulation model:
// it lets the server produce a distribution entry for a joiner without any
// existing member being online.
type EpochKeyTable struct {
	mu   sync.RWMutex
	keys map[uuid.UUID][]byte
}

func NewEpochKeyTable() *EpochKeyTable {
	return &EpochKeyTable{keys: make(map[uuid.UUID][]byte)}
}

func (t *EpochKeyTable) Set(roomID uuid.UUID, key []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keys[roomID] = key
}

func (t *EpochKeyTable) Get(roomID uuid.UUID) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	key, ok := t.keys[roomID]
	return key, ok
}

// Drop forgets a room's key, zeroing the buffer first so the cleartext does
// not linger in memory longer than the table entry.
func (t *EpochKeyTable) Drop(roomID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if key, ok := t.keys[roomID]; ok {
		for i := range key {
			key[i] = 0
		}
		delete(t.keys, roomID)
	}
}
