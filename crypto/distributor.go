package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"

	"quantumchat/errors"
)

// EpochKeySize is the size of a room's symmetric message key in bytes.
const EpochKeySize = 32

// NewEpochKey draws a fresh random symmetric key for a room. The cleartext
// key must only ever live in memory for the room's active lifetime.
func NewEpochKey() ([]byte, error) {
	key := make([]byte, EpochKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("epoch key generation: %w", err)
	}
	return key, nil
}

// CreateRoomKey generates a room's epoch key and encapsulates it once per
// member. The key itself is discarded when this call returns; only the
// per-member entries come back.
//
// An empty member set is a valid transient state: the epoch key is still
// generated and an empty mapping is returned, so the room exists with no one
// able to read it until a member is added.
func CreateRoomKey(members map[uuid.UUID][]byte) (map[uuid.UUID][]byte, error) {
	epochKey, err := NewEpochKey()
	if err != nil {
		return nil, err
	}
	return DistributeEpochKey(epochKey, members)
}

// DistributeEpochKey encapsulates an existing epoch key for every member in
// the set, keyed by member ID.
func DistributeEpochKey(epochKey []byte, members map[uuid.UUID][]byte) (map[uuid.UUID][]byte, error) {
	entries := make(map[uuid.UUID][]byte, len(members))
	for userID, publicKey := range members {
		entry, err := AddMember(epochKey, publicKey)
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", userID, err)
		}
		entries[userID] = entry
	}
	return entries, nil
}

// AddMember produces exactly one distribution entry for a joining member,
// leaving every existing entry untouched.
//
// Layout: kem_ciphertext(1088) || nonce(12) || tag(16) || sealed_epoch_key(32).
func AddMember(epochKey, publicKey []byte) ([]byte, error) {
	sharedSecret, kemCiphertext, err := Encapsulate(publicKey)
	if err != nil {
		return nil, err
	}

	sealedKey, err := seal(epochKey, sharedSecret, roomKeyLabel)
	if err != nil {
		return nil, err
	}

	entry := make([]byte, 0, KEMCiphertextSize+len(sealedKey))
	entry = append(entry, kemCiphertext...)
	entry = append(entry, sealedKey...)
	return entry, nil
}

// OpenDistribution is the member-side counterpart of AddMember: decapsulate
// the KEM ciphertext with the member's private key, then open the sealed
// epoch key.
func OpenDistribution(privateKey, entry []byte) ([]byte, error) {
	if len(entry) < KEMCiphertextSize+NonceSize+TagSize {
		return nil, errors.ErrDecapsulation
	}

	sharedSecret, err := Decapsulate(privateKey, entry[:KEMCiphertextSize])
	if err != nil {
		return nil, err
	}

	return open(entry[KEMCiphertextSize:], sharedSecret, roomKeyLabel)
}
