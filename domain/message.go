package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event. The payload is sealed by the
// sender under the room's shared secret; the server only ever sees the
// ciphertext blob.
type Message struct {
	ID         uuid.UUID
	RoomID     uuid.UUID
	SenderID   uuid.UUID
	Ciphertext []byte // nonce || tag || ciphertext
	SentAt     time.Time
}
