//go:generate go run go.uber.org/mock/mockgen -source=identity.go -destination=../mocks/mock_identity_repository.go -package=mocks
package repositories

import (
	goerrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"quantumchat/domain"
	"quantumchat/errors"
)

type IIdentityRepository interface {
	CreateIdentity(identity domain.Identity) error
	GetIdentityByUsername(username string) (domain.Identity, error)
	GetIdentityByID(userID uuid.UUID) (domain.Identity, error)
	GetPublicKeys(userIDs []uuid.UUID) (map[uuid.UUID][]byte, error)
}

type IdentityRepository struct {
	db *badger.DB
}

func NewIdentityRepository(db *badger.DB) IIdentityRepository {
	return &IdentityRepository{db: db}
}

// diskIdentity is the stored shape of an Identity. The private key field
// only ever holds the password-wrapped blob.
type diskIdentity struct {
	UserID       string `cbor:"id"`
	Username     string `cbor:"username"`
	PasswordHash string `cbor:"password_hash"`
	PublicKey    []byte `cbor:"public_key"`
	WrappedKey   []byte `cbor:"wrapped_private_key"`
	CreatedAt    int64  `cbor:"created_at"`
}

// CreateIdentity persists a new identity under two keys: the full record at
// "identity:{username}" and an ID pointer at "identityid:{uuid}" so lookups
// work both ways.
func (r IdentityRepository) CreateIdentity(identity domain.Identity) error {
	data, err := cbor.Marshal(fromIdentity(identity))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		key := []byte("identity:" + identity.Username)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte("identityid:"+identity.UserID.String()), []byte(identity.Username))
	})
}

func (r IdentityRepository) GetIdentityByUsername(username string) (domain.Identity, error) {
	var disk diskIdentity
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("identity:" + username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Identity{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.Identity{}, err
	}
	return toIdentity(disk)
}

func (r IdentityRepository) GetIdentityByID(userID uuid.UUID) (domain.Identity, error) {
	var username string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("identityid:" + userID.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			username = string(val)
			return nil
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Identity{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.Identity{}, err
	}
	return r.GetIdentityByUsername(username)
}

// GetPublicKeys resolves the KEM public key of every requested member.
// Missing members fail the whole lookup: a room key must never be
// distributed against a partial member set silently.
func (r IdentityRepository) GetPublicKeys(userIDs []uuid.UUID) (map[uuid.UUID][]byte, error) {
	keys := make(map[uuid.UUID][]byte, len(userIDs))
	for _, id := range userIDs {
		identity, err := r.GetIdentityByID(id)
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", id, err)
		}
		keys[id] = identity.PublicKey
	}
	return keys, nil
}

func fromIdentity(identity domain.Identity) diskIdentity {
	return diskIdentity{
		UserID:       identity.UserID.String(),
		Username:     identity.Username,
		PasswordHash: identity.PasswordHash,
		PublicKey:    identity.PublicKey,
		WrappedKey:   identity.WrappedKey,
		CreatedAt:    identity.CreatedAt.UnixNano(),
	}
}

func toIdentity(disk diskIdentity) (domain.Identity, error) {
	parsedID, err := uuid.Parse(disk.UserID)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		UserID:       parsedID,
		Username:     disk.Username,
		PasswordHash: disk.PasswordHash,
		PublicKey:    disk.PublicKey,
		WrappedKey:   disk.WrappedKey,
		CreatedAt:    time.Unix(0, disk.CreatedAt).UTC(),
	}, nil
}
