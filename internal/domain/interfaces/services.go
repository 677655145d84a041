package interfaces

import (
	"context"

	domaintypes "cipherkeep/internal/domain/types"
)

// AccountService runs signup, login and device registration.
type AccountService interface {
	SignUp(ctx context.Context, username domaintypes.Username, password string) (domaintypes.Profile, error)
	LogIn(ctx context.Context, username domaintypes.Username, password string) (domaintypes.Profile, error)
	Resume(ctx context.Context, password string) (domaintypes.Profile, error)
	Replenish(ctx context.Context, password string, minimum int) (int, error)
	Status(ctx context.Context, password string) (domaintypes.DeviceStatus, error)
}

// SessionService sets up per-device sessions with peers.
type SessionService interface {
	StartChat(ctx context.Context, peer domaintypes.Username) ([]domaintypes.Session, error)
	Accept(
		ctx context.Context,
		from domaintypes.Address,
		peerIdentity domaintypes.IdentityPublic,
		msg domaintypes.PreKeyMessage,
	) (domaintypes.Session, error)
	Trust(peer domaintypes.Address, identity domaintypes.IdentityPublic) error
}
