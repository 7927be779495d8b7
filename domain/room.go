package domain

import (
	"time"

	"github.com/google/uuid"
)

// Room is a chat room with exactly one active key epoch at a time. The epoch
// key itself is never part of the persisted room; it survives only as one
// KeyDistribution per member.
type Room struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// KeyDistribution carries a room's epoch key re-encrypted for one member via
// their public key. At most one record exists per (room, user) for the
// current epoch.
type KeyDistribution struct {
	RoomID    uuid.UUID
	UserID    uuid.UUID
	Entry     []byte // kem_ciphertext || nonce || tag || sealed_epoch_key
	CreatedAt time.Time
}
