package middleware

import (
	"context"

	"github.com/cartacocktail/carta-backend/pkg/enums"
)

// Actor is the authenticated caller as read from the access token.
type Actor struct {
	UserID    string
	Role      enums.UserRole
	SessionID string
}

type actorKey struct{}

// WithActor stores the caller on ctx; Auth calls it once per request.
func WithActor(ctx context.Context, a Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext reports the caller and whether Auth ran for this request.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok && a.UserID != ""
}

func UserIDFromContext(ctx context.Context) string {
	a, _ := ActorFromContext(ctx)
	return a.UserID
}

func RoleFromContext(ctx context.Context) string {
	a, _ := ActorFromContext(ctx)
	return string(a.Role)
}

// WithUserID and WithRole adjust one field of the stored actor. Tests use
// them to fake a caller without minting a token.
func WithUserID(ctx context.Context, userID string) context.Context {
	a, _ := actorOf(ctx)
	a.UserID = userID
	return WithActor(ctx, a)
}

func WithRole(ctx context.Context, role string) context.Context {
	a, _ := actorOf(ctx)
	a.Role = enums.UserRole(role)
	return WithActor(ctx, a)
}

func actorOf(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
