package usecase

import "context"

// SystemActor is recorded when no actor is attached to the context.
const SystemActor = "system"

type actorKey struct{}

// WithActor attaches the identity of the caller to ctx for audit records.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the actor stored by WithActor, or SystemActor.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}

	return SystemActor
}
