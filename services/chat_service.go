//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"time"

	"github.com/google/uuid"

	"quantumchat/crypto"
	"quantumchat/domain"
	"quantumchat/domain/event"
	"quantumchat/hub"
	"quantumchat/repositories"
	"quantumchat/runtime"
)

type IChatService interface {
	SendMessage(roomID, senderID uuid.UUID, sharedSecret, plaintext []byte) (domain.Message, error)
	OpenMessage(blob, sharedSecret []byte) ([]byte, error)
	GetMessages(roomID uuid.UUID, cursor *string) ([]domain.Message, *string, error)
	Connect(conn hub.Conn, roomID uuid.UUID)
	Disconnect(conn hub.Conn, roomID uuid.UUID)
}

type ChatService struct {
	messageRepository repositories.IMessageRepository
	hub               *hub.Hub
	engine            *runtime.Engine
}

func NewChatService(messages repositories.IMessageRepository, h *hub.Hub,
	engine *runtime.Engine) IChatService {
	return &ChatService{messageRepository: messages, hub: h, engine: engine}
}

// SendMessage seals the plaintext under the room's shared secret, persists
// the ciphertext and dispatches a stored-message event so the delivery
// worker pushes it to the room's live connections. The plaintext never
// reaches storage or the hub.
func (s *ChatService) SendMessage(roomID, senderID uuid.UUID, sharedSecret, plaintext []byte) (domain.Message, error) {
	ciphertext, err := crypto.EncryptMessage(plaintext, sharedSecret)
	if err != nil {
		return domain.Message{}, err
	}

	message := domain.Message{
		ID:         uuid.New(),
		RoomID:     roomID,
		SenderID:   senderID,
		Ciphertext: ciphertext,
		SentAt:     time.Now().UTC(),
	}
	if err := s.messageRepository.StoreMessage(message); err != nil {
		return domain.Message{}, err
	}

	s.engine.Dispatch(event.MessageStored{Message: message})
	return message, nil
}

// OpenMessage is the receiving counterpart: any tamper, truncation or wrong
// secret fails the whole call, never a partial plaintext.
func (s *ChatService) OpenMessage(blob, sharedSecret []byte) ([]byte, error) {
	return crypto.DecryptMessage(blob, sharedSecret)
}

func (s *ChatService) GetMessages(roomID uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	return s.messageRepository.GetMessages(roomID, cursor)
}

// Connect registers a live connection for real-time delivery.
func (s *ChatService) Connect(conn hub.Conn, roomID uuid.UUID) {
	s.hub.Connect(conn, roomID)
}

// Disconnect is idempotent; a connection already pruned by a failed
// broadcast is a no-op.
func (s *ChatService) Disconnect(conn hub.Conn, roomID uuid.UUID) {
	s.hub.Disconnect(conn, roomID)
}
