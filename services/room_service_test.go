package services

import (
	goerrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"quantumchat/crypto"
	"quantumchat/domain"
	"quantumchat/errors"
	"quantumchat/repositories"
)

type testMember struct {
	id      uuid.UUID
	private []byte
}

// seedIdentity stores an identity with a real KEM keypair, skipping the
// registration path so these tests stay off Argon2id.
func seedIdentity(t *testing.T, repo repositories.IIdentityRepository, username string) testMember {
	t.Helper()
	publicKey, privateKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	identity := domain.Identity{
		UserID:    uuid.New(),
		Username:  username,
		PublicKey: publicKey,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateIdentity(identity))
	return testMember{id: identity.UserID, private: privateKey}
}

func newRoomFixture(t *testing.T) (IRoomService, repositories.IRoomRepository, repositories.IIdentityRepository, *EpochKeyTable) {
	t.Helper()
	db := openTestDB(t)
	roomRepo := repositories.NewRoomRepository(db)
	identityRepo := repositories.NewIdentityRepository(db)
	epochKeys := NewEpochKeyTable()
	return NewRoomService(roomRepo, identityRepo, epochKeys), roomRepo, identityRepo, epochKeys
}

func TestRoomService_CreateRoom(t *testing.T) {
	req := require.New(t)
	svc, roomRepo, identityRepo, _ := newRoomFixture(t)

	alice := seedIdentity(t, identityRepo, "alice")
	bob := seedIdentity(t, identityRepo, "bob")

	room, entries, err := svc.CreateRoom("quantum lounge", []uuid.UUID{alice.id, bob.id})
	req.NoError(err)
	req.Len(entries, 2)

	// Each member recovers the same epoch key from their persisted entry.
	aliceDist, err := roomRepo.GetDistribution(room.ID, alice.id)
	req.NoError(err)
	aliceKey, err := crypto.OpenDistribution(alice.private, aliceDist.Entry)
	req.NoError(err)

	bobDist, err := roomRepo.GetDistribution(room.ID, bob.id)
	req.NoError(err)
	bobKey, err := crypto.OpenDistribution(bob.private, bobDist.Entry)
	req.NoError(err)

	req.Len(aliceKey, crypto.EpochKeySize)
	req.Equal(aliceKey, bobKey)
}

func TestRoomService_CreateRoomWithNoMembers(t *testing.T) {
	req := require.New(t)
	svc, _, identityRepo, _ := newRoomFixture(t)

	// Valid transient state: the room exists, nobody can read it yet.
	room, entries, err := svc.CreateRoom("empty for now", nil)
	req.NoError(err)
	req.Empty(entries)

	// A first joiner still gets served from the retained epoch key.
	carol := seedIdentity(t, identityRepo, "carol")
	dist, err := svc.Join(room.ID, carol.id)
	req.NoError(err)

	key, err := crypto.OpenDistribution(carol.private, dist.Entry)
	req.NoError(err)
	req.Len(key, crypto.EpochKeySize)
}

func TestRoomService_Join(t *testing.T) {
	req := require.New(t)
	svc, _, identityRepo, _ := newRoomFixture(t)

	alice := seedIdentity(t, identityRepo, "alice")
	carol := seedIdentity(t, identityRepo, "carol")

	room, entries, err := svc.CreateRoom("quantum lounge", []uuid.UUID{alice.id})
	req.NoError(err)

	dist, err := svc.Join(room.ID, carol.id)
	req.NoError(err)

	// The joiner and the founder share the epoch.
	aliceKey, err := crypto.OpenDistribution(alice.private, entries[alice.id])
	req.NoError(err)
	carolKey, err := crypto.OpenDistribution(carol.private, dist.Entry)
	req.NoError(err)
	req.Equal(aliceKey, carolKey)

	_, err = svc.Join(room.ID, carol.id)
	req.ErrorIs(err, errors.ErrAlreadyMember)

	_, err = svc.Join(uuid.New(), carol.id)
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

var errDistReadFailed = goerrors.New("distribution read failed")

// failingDistributionReads wraps a real repository but fails every
// membership lookup, standing in for a storage layer having a bad day.
type failingDistributionReads struct {
	repositories.IRoomRepository
}

func (f *failingDistributionReads) GetDistribution(uuid.UUID, uuid.UUID) (domain.KeyDistribution, error) {
	return domain.KeyDistribution{}, errDistReadFailed
}

// A storage failure during the membership check is not evidence that the
// member is absent; the join must surface it instead of proceeding.
func TestRoomService_JoinSurfacesStorageFailure(t *testing.T) {
	req := require.New(t)
	svc, roomRepo, identityRepo, epochKeys := newRoomFixture(t)

	alice := seedIdentity(t, identityRepo, "alice")
	room, _, err := svc.CreateRoom("quantum lounge", []uuid.UUID{alice.id})
	req.NoError(err)

	carol := seedIdentity(t, identityRepo, "carol")
	flaky := NewRoomService(&failingDistributionReads{IRoomRepository: roomRepo},
		identityRepo, epochKeys)
	_, err = flaky.Join(room.ID, carol.id)
	req.ErrorIs(err, errDistReadFailed)

	// No entry was written for the failed join.
	_, err = roomRepo.GetDistribution(room.ID, carol.id)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRoomService_JoinWithoutActiveKey(t *testing.T) {
	req := require.New(t)
	svc, roomRepo, identityRepo, _ := newRoomFixture(t)

	alice := seedIdentity(t, identityRepo, "alice")
	room, _, err := svc.CreateRoom("quantum lounge", []uuid.UUID{alice.id})
	req.NoError(err)

	// A service that lost its in-memory key table (say, after a restart)
	// cannot serve joiners: the server never persists the cleartext key.
	restarted := NewRoomService(roomRepo, identityRepo, NewEpochKeyTable())
	carol := seedIdentity(t, identityRepo, "carol")
	_, err = restarted.Join(room.ID, carol.id)
	req.ErrorIs(err, errors.ErrNoRoomKey)
}

func TestRoomService_LeaveAndClose(t *testing.T) {
	req := require.New(t)
	svc, roomRepo, identityRepo, epochKeys := newRoomFixture(t)

	alice := seedIdentity(t, identityRepo, "alice")
	bob := seedIdentity(t, identityRepo, "bob")
	room, _, err := svc.CreateRoom("quantum lounge", []uuid.UUID{alice.id, bob.id})
	req.NoError(err)

	req.NoError(svc.Leave(room.ID, bob.id))
	_, err = svc.GetDistribution(room.ID, bob.id)
	req.ErrorIs(err, errors.ErrNotFound)

	// Alice's entry is untouched by Bob leaving.
	_, err = svc.GetDistribution(room.ID, alice.id)
	req.NoError(err)

	req.NoError(svc.CloseRoom(room.ID))
	_, err = roomRepo.GetRoom(room.ID)
	req.ErrorIs(err, errors.ErrRoomNotFound)
	_, ok := epochKeys.Get(room.ID)
	req.False(ok)
}
