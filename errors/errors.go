// Package errors defines the sentinel errors shared across the service.
//
// Cryptographic failures are deliberately coarse: a wrong password and a
// corrupted blob both surface as ErrAuth, and any AEAD failure surfaces as
// ErrDecrypt, so callers cannot tell which check rejected the input.
package errors

import "fmt"

var (
	// ErrKeyGen means the KEM primitive is unavailable or failed.
	// Treated as a fatal misconfiguration at startup, never worked around.
	ErrKeyGen = fmt.Errorf("key generation unavailable")

	// ErrAuth covers both a wrong password and a corrupted wrapped key.
	ErrAuth = fmt.Errorf("invalid credentials or corrupted data")

	// ErrDecrypt covers tampering, truncation and wrong keys alike.
	ErrDecrypt = fmt.Errorf("decryption failed")

	ErrEncapsulation = fmt.Errorf("malformed public key")
	ErrDecapsulation = fmt.Errorf("malformed encapsulation ciphertext")

	ErrNotFound          = fmt.Errorf("no distribution record for this member")
	ErrRoomNotFound      = fmt.Errorf("room not found")
	ErrNoRoomKey         = fmt.Errorf("no active key for this room")
	ErrAlreadyMember     = fmt.Errorf("already a member of this room")
	ErrUserAlreadyExists = fmt.Errorf("username already registered")
	ErrUserNotFound      = fmt.Errorf("user not found")

	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrConnectionClosed = fmt.Errorf("connection closed")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
)
