package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"quantumchat/errors"
)

func TestKeyPair_Generate(t *testing.T) {
	req := require.New(t)
	pub, priv, err := GenerateKeyPair()
	req.NoError(err)
	req.Len(pub, PublicKeySize)
	req.Len(priv, PrivateKeySize)

	otherPub, otherPriv, err := GenerateKeyPair()
	req.NoError(err)
	req.NotEqual(pub, otherPub)
	req.NotEqual(priv, otherPriv)
}

func TestKeyPair_EncapsulateDecapsulate(t *testing.T) {
	req := require.New(t)
	pub, priv, err := GenerateKeyPair()
	req.NoError(err)

	secret, kemCiphertext, err := Encapsulate(pub)
	req.NoError(err)
	req.Len(secret, SharedSecretSize)
	req.Len(kemCiphertext, KEMCiphertextSize)

	recovered, err := Decapsulate(priv, kemCiphertext)
	req.NoError(err)
	req.Equal(secret, recovered)
}

func TestKeyPair_MalformedInputs(t *testing.T) {
	req := require.New(t)
	pub, priv, err := GenerateKeyPair()
	req.NoError(err)

	_, _, err = Encapsulate(pub[:len(pub)-1])
	req.ErrorIs(err, errors.ErrEncapsulation)

	_, err = Decapsulate(priv, make([]byte, KEMCiphertextSize-1))
	req.ErrorIs(err, errors.ErrDecapsulation)

	_, err = Decapsulate(priv[:10], make([]byte, KEMCiphertextSize))
	req.ErrorIs(err, errors.ErrDecapsulation)
}

func TestKeyPair_Selfcheck(t *testing.T) {
	require.NoError(t, Selfcheck())
}
