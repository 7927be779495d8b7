package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"quantumchat/errors"
)

// HKDF info labels for domain separation. The same shared secret can never
// yield the same key for two different purposes.
const (
	messageKeyLabel = "quantumchat:message:v1"
	roomKeyLabel    = "quantumchat:roomkey:v1"
)

// EncryptMessage seals a chat payload under a key derived from the room's
// shared secret.
//
// Layout: nonce(12) || tag(16) || ciphertext(var). The nonce is freshly
// random per call, so encrypting the same plaintext twice yields different
// blobs.
func EncryptMessage(plaintext, sharedSecret []byte) ([]byte, error) {
	return seal(plaintext, sharedSecret, messageKeyLabel)
}

// DecryptMessage opens a message blob. Tampering, truncation and a wrong
// secret all surface as the same ErrDecrypt; no partial plaintext is ever
// returned.
func DecryptMessage(blob, sharedSecret []byte) ([]byte, error) {
	return open(blob, sharedSecret, messageKeyLabel)
}

func seal(plaintext, sharedSecret []byte, label string) ([]byte, error) {
	key, err := deriveKey(sharedSecret, label)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	blob := make([]byte, 0, NonceSize+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

func open(blob, sharedSecret []byte, label string) ([]byte, error) {
	if len(blob) < NonceSize+TagSize {
		return nil, errors.ErrDecrypt
	}

	nonce := blob[:NonceSize]
	tag := blob[NonceSize : NonceSize+TagSize]
	ciphertext := blob[NonceSize+TagSize:]

	key, err := deriveKey(sharedSecret, label)
	if err != nil {
		return nil, err
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.ErrDecrypt
	}
	return plaintext, nil
}

// deriveKey derives an AES-256 key from a KEM shared secret using
// HKDF-SHA-256 bound to the given label.
func deriveKey(sharedSecret []byte, label string) ([]byte, error) {
	reader := hkdf.New(sha256.New, sharedSecret, nil, []byte(label))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return key, nil
}
