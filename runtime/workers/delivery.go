package workers

import (
	"context"
	"log/slog"

	"quantumchat/domain/event"
	"quantumchat/hub"
)

// DeliveryWorker consumes stored-message events and fans the sealed payload
// out to the room's live connections.
//
// It provides best-effort delivery with no guarantees regarding ordering,
// durability, or retries: the persisted message is the source of truth,
// the push is a convenience for connected clients.
type DeliveryWorker struct {
	hub    *hub.Hub
	events <-chan event.DomainEvent
	log    *slog.Logger
}

func NewDeliveryWorker(h *hub.Hub, events <-chan event.DomainEvent, log *slog.Logger) DeliveryWorker {
	return DeliveryWorker{hub: h, events: events, log: log}
}

func (w DeliveryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping delivery")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			if stored, ok := evt.(event.MessageStored); ok {
				w.hub.Broadcast(stored.Message.Ciphertext, stored.Message.RoomID)
			}
		}
	}
}
