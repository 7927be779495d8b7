package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quantumchat/errors"
)

func TestHashAndComparePassword(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("Str0ng!Passw0rd")
	req.NoError(err)
	req.Contains(hash, "$argon2id$")

	match, err := ComparePassword("Str0ng!Passw0rd", hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("Wr0ng!Passw0rd!", hash)
	req.NoError(err)
	req.False(match)

	_, err = ComparePassword("Str0ng!Passw0rd", "not-an-encoded-hash")
	req.Error(err)
}

func TestHashPassword_FreshSalt(t *testing.T) {
	req := require.New(t)
	first, err := HashPassword("Str0ng!Passw0rd")
	req.NoError(err)
	second, err := HashPassword("Str0ng!Passw0rd")
	req.NoError(err)
	req.NotEqual(first, second)
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-do-not-reuse", time.Hour)

	t.Run("should round-trip claims", func(t *testing.T) {
		req := require.New(t)
		token, err := issuer.Generate("user-42", []string{"user"})
		req.NoError(err)

		claims, err := issuer.Validate(token)
		req.NoError(err)
		req.Equal("user-42", claims.UserID)
		req.Equal([]string{"user"}, claims.Roles)
		req.Equal("quantumchat", claims.Issuer)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		req := require.New(t)
		other := NewTokenIssuer("another-secret-entirely", time.Hour)
		token, err := other.Generate("user-42", []string{"user"})
		req.NoError(err)

		_, err = issuer.Validate(token)
		req.Error(err)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		req := require.New(t)
		expired := NewTokenIssuer("test-secret-do-not-reuse", -time.Minute)
		token, err := expired.Generate("user-42", []string{"user"})
		req.NoError(err)

		_, err = issuer.Validate(token)
		req.Error(err)
	})
}

func TestValidateRegister(t *testing.T) {
	cases := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"valid", "alice", "Str0ng!Passw0rd", false},
		{"password too short", "alice", "Sh0rt!pw", true},
		{"password without special char", "alice", "NoSpecialChar0AtAll", true},
		{"password without digit", "alice", "NoDigitInHere!!!", true},
		{"username with spaces", "not a name", "Str0ng!Passw0rd", true},
		{"empty username", "", "Str0ng!Passw0rd", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRegister(RegisterRequest{Username: tc.username, Password: tc.password})
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateRegister_ComplexityError(t *testing.T) {
	err := ValidateRegister(RegisterRequest{Username: "alice", Password: "alllowercase1234"})
	require.ErrorIs(t, err, errors.ErrInvalidPassword)
}
