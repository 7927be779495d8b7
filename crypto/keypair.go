package crypto

import (
	"bytes"
	"fmt"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"

	"quantumchat/errors"
)

const (
	// PublicKeySize is the size of an ML-KEM-768 public key in bytes.
	PublicKeySize = mlkem768.PublicKeySize
	// PrivateKeySize is the size of an ML-KEM-768 private key in bytes.
	PrivateKeySize = mlkem768.PrivateKeySize
	// KEMCiphertextSize is the size of an ML-KEM-768 encapsulation in bytes.
	KEMCiphertextSize = mlkem768.CiphertextSize
	// SharedSecretSize is the size of the KEM shared secret in bytes.
	SharedSecretSize = mlkem768.SharedKeySize
)

// GenerateKeyPair produces a fresh ML-KEM-768 keypair from crypto/rand.
// This is the only source of new identity key material in the service.
func GenerateKeyPair() (publicKey, privateKey []byte, err error) {
	pub, priv, err := mlkem768.GenerateKeyPair(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrKeyGen, err)
	}

	// MarshalBinary never fails for keys produced by GenerateKeyPair.
	publicKey, _ = pub.MarshalBinary()
	privateKey, _ = priv.MarshalBinary()
	return publicKey, privateKey, nil
}

// Selfcheck exercises the full generate/encapsulate/decapsulate cycle once.
// It is called at startup so a broken or missing primitive aborts
// initialization instead of degrading security per call.
func Selfcheck() error {
	pub, priv, err := GenerateKeyPair()
	if err != nil {
		return err
	}

	secret, kemCiphertext, err := Encapsulate(pub)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrKeyGen, err)
	}

	recovered, err := Decapsulate(priv, kemCiphertext)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrKeyGen, err)
	}

	if !bytes.Equal(secret, recovered) {
		return fmt.Errorf("%w: shared secret mismatch", errors.ErrKeyGen)
	}
	return nil
}

// Encapsulate derives a fresh shared secret against publicKey and returns it
// with the KEM ciphertext the key owner needs to recover it.
func Encapsulate(publicKey []byte) (sharedSecret, kemCiphertext []byte, err error) {
	if len(publicKey) != PublicKeySize {
		return nil, nil, fmt.Errorf("%w: got %d bytes, want %d",
			errors.ErrEncapsulation, len(publicKey), PublicKeySize)
	}

	var pub mlkem768.PublicKey
	if err := pub.Unpack(publicKey); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrEncapsulation, err)
	}

	kemCiphertext = make([]byte, KEMCiphertextSize)
	sharedSecret = make([]byte, SharedSecretSize)
	pub.EncapsulateTo(kemCiphertext, sharedSecret, nil)
	return sharedSecret, kemCiphertext, nil
}

// Decapsulate recovers the shared secret from a KEM ciphertext using the
// member's private key.
func Decapsulate(privateKey, kemCiphertext []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes, want %d",
			errors.ErrDecapsulation, len(privateKey), PrivateKeySize)
	}
	if len(kemCiphertext) != KEMCiphertextSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d",
			errors.ErrDecapsulation, len(kemCiphertext), KEMCiphertextSize)
	}

	var priv mlkem768.PrivateKey
	if err := priv.Unpack(privateKey); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDecapsulation, err)
	}

	sharedSecret := make([]byte, SharedSecretSize)
	priv.DecapsulateTo(sharedSecret, kemCiphertext)
	return sharedSecret, nil
}
