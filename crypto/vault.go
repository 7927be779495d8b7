package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"

	"quantumchat/errors"
)

// Argon2id parameters based on OWASP/CNIL recommendations. The derivation is
// intentionally expensive; callers dispatch it off the fan-out path.
const (
	vaultMemory      = 64 * 1024 // 64 MB
	vaultIterations  = 3
	vaultParallelism = 2

	SaltSize  = 16
	NonceSize = 12
	TagSize   = 16
	KeySize   = 32
)

// WrapPrivateKey seals a raw KEM private key under a password-derived key so
// it is safe for persistent storage.
//
// Layout: salt(16) || nonce(12) || tag(16) || ciphertext(var).
// Salt and nonce are freshly random on every call.
func WrapPrivateKey(privateKey []byte, password string) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt generation: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, vaultIterations, vaultMemory, vaultParallelism, KeySize)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	// gcm.Seal appends the tag after the ciphertext; the stored layout
	// carries the tag first.
	sealed := aead.Seal(nil, nonce, privateKey, nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	blob := make([]byte, 0, SaltSize+NonceSize+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// UnwrapPrivateKey recovers the raw private key from a wrapped blob.
//
// A wrong password and a corrupted blob are indistinguishable: both return
// ErrAuth, nothing else, to avoid oracle leakage.
func UnwrapPrivateKey(blob []byte, password string) ([]byte, error) {
	if len(blob) < SaltSize+NonceSize+TagSize {
		return nil, errors.ErrAuth
	}

	salt := blob[:SaltSize]
	nonce := blob[SaltSize : SaltSize+NonceSize]
	tag := blob[SaltSize+NonceSize : SaltSize+NonceSize+TagSize]
	ciphertext := blob[SaltSize+NonceSize+TagSize:]

	key := argon2.IDKey([]byte(password), salt, vaultIterations, vaultMemory, vaultParallelism, KeySize)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	privateKey, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.ErrAuth
	}
	return privateKey, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}
	return aead, nil
}
