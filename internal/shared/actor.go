package shared

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Actor describes the authenticated caller as supplied by the identity
// gateway. The engine trusts this input and never authenticates.
type Actor struct {
	UserID uuid.UUID
	Roles  []Role
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Header names populated by the gateway in front of this service.
const (
	HeaderUserID = "X-User-ID"
	HeaderRoles  = "X-User-Roles"
)

// ErrNoActor indicates the request carried no usable identity.
var ErrNoActor = errors.New("actor context missing")

// ActorFromHeaders parses the trusted identity headers into an Actor.
// Unknown role names are dropped rather than rejected so that roles added
// by a newer gateway do not break older engine deployments.
func ActorFromHeaders(r *http.Request) (Actor, error) {
	rawID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if rawID == "" {
		return Actor{}, ErrNoActor
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return Actor{}, ErrNoActor
	}
	var roles []Role
	for _, part := range strings.Split(r.Header.Get(HeaderRoles), ",") {
		if role, ok := ParseRole(part); ok {
			roles = append(roles, role)
		}
	}
	return Actor{UserID: userID, Roles: roles}, nil
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
