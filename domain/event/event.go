// Package event defines the domain events the message path produces.
package event

import (
	"quantumchat/domain"
)

type DomainEvent interface {
	EventName() string
}

// MessageStored is emitted after a sealed message has been persisted.
// The delivery worker picks it up and fans the ciphertext out to the room's
// live connections.
type MessageStored struct {
	Message domain.Message
}

func (MessageStored) EventName() string { return "message.stored" }
