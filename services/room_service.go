//go:generate go run go.uber.org/mock/mockgen -source=room_service.go -destination=../mocks/mock_room_service.go -package=mocks
package services

import (
	goerrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"quantumchat/crypto"
	"quantumchat/domain"
	"quantumchat/errors"
	"quantumchat/repositories"
)

type IRoomService interface {
	CreateRoom(name string, memberIDs []uuid.UUID) (domain.Room, map[uuid.UUID][]byte, error)
	Join(roomID, userID uuid.UUID) (domain.KeyDistribution, error)
	Leave(roomID, userID uuid.UUID) error
	GetDistribution(roomID, userID uuid.UUID) (domain.KeyDistribution, error)
	CloseRoom(roomID uuid.UUID) error
}

type RoomService struct {
	roomRepository     repositories.IRoomRepository
	identityRepository repositories.IIdentityRepository
	epochKeys          *EpochKeyTable
}

func NewRoomService(rooms repositories.IRoomRepository,
	identities repositories.IIdentityRepository, epochKeys *EpochKeyTable) IRoomService {
	return &RoomService{
		roomRepository:     rooms,
		identityRepository: identities,
		epochKeys:          epochKeys,
	}
}

// CreateRoom generates the room's epoch key, encapsulates it once per
// founding member and persists one distribution entry each. The epoch key is
// retained in the in-memory table for the room's active lifetime so later
// joiners can be served; it is never written to storage.
//
// An empty member set is valid: the room exists with no one able to read it
// until someone joins.
func (s *RoomService) CreateRoom(name string, memberIDs []uuid.UUID) (domain.Room, map[uuid.UUID][]byte, error) {
	room := domain.Room{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	publicKeys, err := s.identityRepository.GetPublicKeys(memberIDs)
	if err != nil {
		return domain.Room{}, nil, err
	}

	epochKey, err := crypto.NewEpochKey()
	if err != nil {
		return domain.Room{}, nil, err
	}

	entries, err := crypto.DistributeEpochKey(epochKey, publicKeys)
	if err != nil {
		return domain.Room{}, nil, err
	}

	distributions := lo.MapToSlice(entries, func(userID uuid.UUID, entry []byte) domain.KeyDistribution {
		return domain.KeyDistribution{
			RoomID:    room.ID,
			UserID:    userID,
			Entry:     entry,
			CreatedAt: room.CreatedAt,
		}
	})
	// Room record and all founding entries land in one transaction: the room
	// never exists with a partial member set.
	if err := s.roomRepository.CreateRoom(room, distributions); err != nil {
		return domain.Room{}, nil, err
	}

	s.epochKeys.Set(room.ID, epochKey)
	return room, entries, nil
}

// Join produces exactly one new distribution entry for the joining member
// without touching existing members' entries. It needs the room's current
// epoch key, which only exists while the room is active in memory.
func (s *RoomService) Join(roomID, userID uuid.UUID) (domain.KeyDistribution, error) {
	if _, err := s.roomRepository.GetRoom(roomID); err != nil {
		return domain.KeyDistribution{}, err
	}

	switch _, err := s.roomRepository.GetDistribution(roomID, userID); {
	case err == nil:
		return domain.KeyDistribution{}, errors.ErrAlreadyMember
	case !goerrors.Is(err, errors.ErrNotFound):
		// A storage failure is not evidence of absence.
		return domain.KeyDistribution{}, err
	}

	epochKey, ok := s.epochKeys.Get(roomID)
	if !ok {
		return domain.KeyDistribution{}, errors.ErrNoRoomKey
	}

	identity, err := s.identityRepository.GetIdentityByID(userID)
	if err != nil {
		return domain.KeyDistribution{}, err
	}

	entry, err := crypto.AddMember(epochKey, identity.PublicKey)
	if err != nil {
		return domain.KeyDistribution{}, err
	}

	dist := domain.KeyDistribution{
		RoomID:    roomID,
		UserID:    userID,
		Entry:     entry,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.roomRepository.SaveDistribution(dist); err != nil {
		return domain.KeyDistribution{}, err
	}
	return dist, nil
}

// Leave removes the member's distribution entry. The member keeps any
// epoch key they already decapsulated; forward secrecy would need a key
// rotation, which this service does not model.
func (s *RoomService) Leave(roomID, userID uuid.UUID) error {
	return s.roomRepository.DeleteDistribution(roomID, userID)
}

// GetDistribution is the read accessor for a member's own entry.
// Authorization (is this the right requester) belongs to the calling
// collaborator, not here.
func (s *RoomService) GetDistribution(roomID, userID uuid.UUID) (domain.KeyDistribution, error) {
	return s.roomRepository.GetDistribution(roomID, userID)
}

// CloseRoom tears the room down: distributions and the room record are
// deleted, and the in-memory epoch key is zeroed.
func (s *RoomService) CloseRoom(roomID uuid.UUID) error {
	s.epochKeys.Drop(roomID)
	return s.roomRepository.DeleteRoom(roomID)
}
