package entity

import "context"

// AuthorizationChecker answers ownership and admin questions about an actor. The ledger never
// looks these up itself.
type AuthorizationChecker interface {
	IsOwner(ctx context.Context, bookingID string, actorID string) (bool, error)
	IsAdmin(ctx context.Context, actorID string) (bool, error)
}
