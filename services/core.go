package services

import (
	"quantumchat/auth"
	"quantumchat/hub"
	"quantumchat/repositories"
	"quantumchat/runtime"
)

// Core bundles the collaborator-facing services behind a single constructor
// so a host wires the full graph consistently: one epoch-key table shared by
// the room service, one engine shared by everything compute-bound.
type Core struct {
	Identity IIdentityService
	Rooms    IRoomService
	Chat     IChatService
}

type CoreDeps struct {
	Identities repositories.IIdentityRepository
	Rooms      repositories.IRoomRepository
	Messages   repositories.IMessageRepository
	Tokens     *auth.TokenIssuer
	Hub        *hub.Hub
	Engine     *runtime.Engine
}

func NewCore(deps CoreDeps) *Core {
	epochKeys := NewEpochKeyTable()
	return &Core{
		Identity: NewIdentityService(deps.Identities, deps.Tokens, deps.Engine),
		Rooms:    NewRoomService(deps.Rooms, deps.Identities, epochKeys),
		Chat:     NewChatService(deps.Messages, deps.Hub, deps.Engine),
	}
}

// Names lists the mounted services, for startup logging.
func (c *Core) Names() []string {
	return []string{"identity", "rooms", "chat"}
}
