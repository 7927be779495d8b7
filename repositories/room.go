//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
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

type IRoomRepository interface {
	CreateRoom(room domain.Room, distributions []domain.KeyDistribution) error
	GetRoom(roomID uuid.UUID) (domain.Room, error)
	SaveDistribution(dist domain.KeyDistribution) error
	GetDistribution(roomID, userID uuid.UUID) (domain.KeyDistribution, error)
	DeleteDistribution(roomID, userID uuid.UUID) error
	DeleteRoom(roomID uuid.UUID) error
}

type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) IRoomRepository {
	return &RoomRepository{db: db}
}

type diskRoom struct {
	ID        string `cbor:"id"`
	Name      string `cbor:"name"`
	CreatedAt int64  `cbor:"created_at"`
}

type diskDistribution struct {
	RoomID    string `cbor:"room_id"`
	UserID    string `cbor:"user_id"`
	Entry     []byte `cbor:"entry"`
	CreatedAt int64  `cbor:"created_at"`
}

func roomKey(roomID uuid.UUID) []byte {
	return []byte("room:" + roomID.String())
}

// distKey enforces the single-record invariant: exactly one distribution
// slot exists per (room, user) pair.
func distKey(roomID, userID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("dist:%s:%s", roomID, userID))
}

// CreateRoom persists the room record together with every founding member's
// distribution entry in a single transaction. Either the room exists with its
// complete member set or it does not exist at all; a crash mid-creation can
// never leave members without their entry.
func (r RoomRepository) CreateRoom(room domain.Room, distributions []domain.KeyDistribution) error {
	data, err := cbor.Marshal(diskRoom{
		ID:        room.ID.String(),
		Name:      room.Name,
		CreatedAt: room.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	encoded := make(map[string][]byte, len(distributions))
	for _, dist := range distributions {
		value, err := marshalDistribution(dist)
		if err != nil {
			return fmt.Errorf("distribution for %s: %w", dist.UserID, err)
		}
		encoded[string(distKey(dist.RoomID, dist.UserID))] = value
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(roomKey(room.ID), data); err != nil {
			return err
		}
		for key, value := range encoded {
			if err := txn.Set([]byte(key), value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r RoomRepository) GetRoom(roomID uuid.UUID) (domain.Room, error) {
	var disk diskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Room{}, err
	}
	return domain.Room{
		ID:        parsedID,
		Name:      disk.Name,
		CreatedAt: time.Unix(0, disk.CreatedAt).UTC(),
	}, nil
}

func marshalDistribution(dist domain.KeyDistribution) ([]byte, error) {
	data, err := cbor.Marshal(diskDistribution{
		RoomID:    dist.RoomID.String(),
		UserID:    dist.UserID.String(),
		Entry:     dist.Entry,
		CreatedAt: dist.CreatedAt.UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}
	return data, nil
}

// SaveDistribution writes a member's entry for the current epoch,
// overwriting any previous entry for the same (room, user) pair.
func (r RoomRepository) SaveDistribution(dist domain.KeyDistribution) error {
	data, err := marshalDistribution(dist)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(distKey(dist.RoomID, dist.UserID), data)
	})
}

func (r RoomRepository) GetDistribution(roomID, userID uuid.UUID) (domain.KeyDistribution, error) {
	var disk diskDistribution
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(distKey(roomID, userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.KeyDistribution{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.KeyDistribution{}, err
	}
	return domain.KeyDistribution{
		RoomID:    roomID,
		UserID:    userID,
		Entry:     disk.Entry,
		CreatedAt: time.Unix(0, disk.CreatedAt).UTC(),
	}, nil
}

// DeleteDistribution removes a member's entry when their membership ends.
func (r RoomRepository) DeleteDistribution(roomID, userID uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(distKey(roomID, userID))
	})
}

// DeleteRoom removes the room record and every distribution entry attached
// to it.
func (r RoomRepository) DeleteRoom(roomID uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("dist:%s:", roomID))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return txn.Delete(roomKey(roomID))
	})
}
