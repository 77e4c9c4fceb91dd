package till

import "context"

// Actor is the identity on whose behalf a request executes. Authentication
// and role resolution happen upstream; the engine reads ID for audit only
// and assumes the "create sale" capability was already checked.
type Actor struct {
	ID          string
	Role        string
	Permissions PermissionSet
}

// PermissionSet is the opaque capability set resolved for an actor.
type PermissionSet map[string]bool

// Can reports whether the set carries the named capability.
func (p PermissionSet) Can(capability string) bool {
	return p[capability]
}

type contextKey string

const (
	actorKey   contextKey = "till.actor"
	sessionKey contextKey = "till.session"
)

// WithActor returns a context carrying the request actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext extracts the request actor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

// WithSession returns a context carrying the client session id.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionFromContext extracts the client session id, if any.
func SessionFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(sessionKey).(string)
	return s, ok && s != ""
}
