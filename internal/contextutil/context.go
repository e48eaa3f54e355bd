package contextutil

import "context"

type contextKey string

const (
	TraceIDKey contextKey = "traceID"
	ActorKey   contextKey = "actor"
)

func TraceIDFromContext(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok || traceID == "" {
		return "unknown-trace-id"
	}
	return traceID
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// ActorFromContext returns the username of the authenticated caller, "system" for scheduled jobs.
func ActorFromContext(ctx context.Context) string {
	actor, ok := ctx.Value(ActorKey).(string)
	if !ok || actor == "" {
		return "system"
	}
	return actor
}

func WithActor(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ActorKey, username)
}
