package services

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"quantumchat/crypto"
	"quantumchat/errors"
	"quantumchat/hub"
	"quantumchat/repositories"
)

type recordingConn struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (c *recordingConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *recordingConn) last() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.payloads) == 0 {
		return nil
	}
	return c.payloads[len(c.payloads)-1]
}

func newChatFixture(t *testing.T) IChatService {
	t.Helper()
	log := slog.Default()
	connectionHub := hub.NewHub(log)
	t.Cleanup(connectionHub.Close)

	engine := startEngine(t, connectionHub)
	messageRepo := repositories.NewMessageRepository(openTestDB(t), log, nil)
	return NewChatService(messageRepo, connectionHub, engine)
}

func TestChatService_SendAndOpenMessage(t *testing.T) {
	req := require.New(t)
	svc := newChatFixture(t)

	sharedSecret := make([]byte, crypto.SharedSecretSize)
	roomID := uuid.New()
	senderID := uuid.New()

	message, err := svc.SendMessage(roomID, senderID, sharedSecret, []byte("hello quantum world"))
	req.NoError(err)
	req.NotEmpty(message.Ciphertext)

	plaintext, err := svc.OpenMessage(message.Ciphertext, sharedSecret)
	req.NoError(err)
	req.Equal([]byte("hello quantum world"), plaintext)

	_, err = svc.OpenMessage(message.Ciphertext, []byte("fedcba9876543210fedcba9876543210"))
	req.ErrorIs(err, errors.ErrDecrypt)
}

func TestChatService_DeliversToConnectedMembers(t *testing.T) {
	req := require.New(t)
	svc := newChatFixture(t)

	roomID := uuid.New()
	conn := &recordingConn{}
	svc.Connect(conn, roomID)
	defer svc.Disconnect(conn, roomID)

	sharedSecret := make([]byte, crypto.SharedSecretSize)
	message, err := svc.SendMessage(roomID, uuid.New(), sharedSecret, []byte("incoming"))
	req.NoError(err)

	// Delivery is asynchronous through the engine's worker.
	req.Eventually(func() bool {
		return conn.last() != nil
	}, time.Second, 10*time.Millisecond)
	req.Equal(message.Ciphertext, conn.last())
}

func TestChatService_MessagesPersistInOrder(t *testing.T) {
	req := require.New(t)
	svc := newChatFixture(t)

	sharedSecret := make([]byte, crypto.SharedSecretSize)
	roomID := uuid.New()
	senderID := uuid.New()

	for _, text := range []string{"first", "second", "third"} {
		_, err := svc.SendMessage(roomID, senderID, sharedSecret, []byte(text))
		req.NoError(err)
		time.Sleep(time.Millisecond) // distinct SentAt nanos
	}

	messages, _, err := svc.GetMessages(roomID, nil)
	req.NoError(err)
	req.Len(messages, 3)

	// Newest first; each opens back to its plaintext.
	newest, err := svc.OpenMessage(messages[0].Ciphertext, sharedSecret)
	req.NoError(err)
	req.Equal([]byte("third"), newest)
}
