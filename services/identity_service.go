//go:generate go run go.uber.org/mock/mockgen -source=identity_service.go -destination=../mocks/mock_identity_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quantumchat/auth"
	"quantumchat/crypto"
	"quantumchat/domain"
	"quantumchat/errors"
	"quantumchat/repositories"
	"quantumchat/runtime"
)

type IIdentityService interface {
	Register(ctx context.Context, username, password string) (RegisteredIdentity, error)
	Login(ctx context.Context, username, password string) (Token, error)
	Unlock(ctx context.Context, username, password string) ([]byte, error)
}

type Token string

// RegisteredIdentity is what a fresh registration hands back to the caller:
// a session token plus the public half and the wrapped private half of the
// new KEM keypair. The raw private key is gone by the time this returns.
type RegisteredIdentity struct {
	UserID     uuid.UUID
	Token      Token
	PublicKey  []byte
	WrappedKey []byte
}

type IdentityService struct {
	identityRepository repositories.IIdentityRepository
	tokens             *auth.TokenIssuer
	engine             *runtime.Engine
}

func NewIdentityService(repo repositories.IIdentityRepository,
	tokens *auth.TokenIssuer, engine *runtime.Engine) IIdentityService {
	return &IdentityService{identityRepository: repo, tokens: tokens, engine: engine}
}

// Register creates a full identity: login hash, fresh ML-KEM-768 keypair and
// the password-wrapped private key, then persists it and issues a token.
// Both Argon2id derivations run on the vault pool, not on this goroutine.
func (s *IdentityService) Register(ctx context.Context, username, password string) (RegisteredIdentity, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Password: password,
	}

	// Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return RegisteredIdentity{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	publicKey, privateKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return RegisteredIdentity{}, err
	}

	var (
		hashedPassword string
		wrappedKey     []byte
		hashErr        error
		wrapErr        error
	)
	err = s.engine.ExecuteVault(ctx, func() {
		hashedPassword, hashErr = auth.HashPassword(password)
		wrappedKey, wrapErr = crypto.WrapPrivateKey(privateKey, password)
	})
	if err != nil {
		return RegisteredIdentity{}, err
	}
	if hashErr != nil {
		return RegisteredIdentity{}, fmt.Errorf("hashing failed: %w", hashErr)
	}
	if wrapErr != nil {
		return RegisteredIdentity{}, fmt.Errorf("key wrapping failed: %w", wrapErr)
	}

	identity := domain.Identity{
		UserID:       uuid.New(),
		Username:     username,
		PasswordHash: hashedPassword,
		PublicKey:    publicKey,
		WrappedKey:   wrappedKey,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.identityRepository.CreateIdentity(identity); err != nil {
		return RegisteredIdentity{}, err // Propagates ErrUserAlreadyExists
	}

	token, err := s.tokens.Generate(identity.UserID.String(), []string{"user"})
	if err != nil {
		return RegisteredIdentity{}, errors.ErrTokenGeneration
	}

	return RegisteredIdentity{
		UserID:     identity.UserID,
		Token:      Token(token),
		PublicKey:  publicKey,
		WrappedKey: wrappedKey,
	}, nil
}

// Login verifies credentials and issues a session token. Every failure mode
// maps to the same generic error to prevent user enumeration.
func (s *IdentityService) Login(ctx context.Context, username, password string) (Token, error) {
	identity, err := s.identityRepository.GetIdentityByUsername(username)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}

	var (
		match      bool
		compareErr error
	)
	if err := s.engine.ExecuteVault(ctx, func() {
		match, compareErr = auth.ComparePassword(password, identity.PasswordHash)
	}); err != nil {
		return "", err
	}
	if compareErr != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(identity.UserID.String(), []string{"user"})
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

// Unlock recovers the raw private key from its wrapped form. A wrong
// password and a corrupted blob both come back as ErrAuth; the caller must
// treat the result as transient material and discard it after use.
func (s *IdentityService) Unlock(ctx context.Context, username, password string) ([]byte, error) {
	identity, err := s.identityRepository.GetIdentityByUsername(username)
	if err != nil {
		return nil, errors.ErrAuth
	}

	var (
		privateKey []byte
		unwrapErr  error
	)
	if err := s.engine.ExecuteVault(ctx, func() {
		privateKey, unwrapErr = crypto.UnwrapPrivateKey(identity.WrappedKey, password)
	}); err != nil {
		return nil, err
	}
	if unwrapErr != nil {
		return nil, unwrapErr
	}
	return privateKey, nil
}
