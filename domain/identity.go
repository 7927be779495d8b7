// Package domain contains core concepts of the encrypted chat system.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity is a user's cryptographic material. The private key is stored
// exclusively in password-wrapped form; the raw key exists only transiently
// in memory during wrap, unwrap and decapsulation.
type Identity struct {
	UserID       uuid.UUID
	Username     string
	PasswordHash string // argon2id login hash, unrelated to the wrapping key
	PublicKey    []byte // raw ML-KEM-768 public key
	WrappedKey   []byte // salt || nonce || tag || ciphertext
	CreatedAt    time.Time
}
