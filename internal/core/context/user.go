// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"branchstock/internal/core/id"
)

// Actor is the already-authenticated user on whose behalf the engine acts.
// Resolution of tokens to an Actor happens outside this module.
type Actor struct {
	UserID  id.ID
	Name    string
	IsAdmin bool
}

// Label returns the value used as the actor label in logs and audit events.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	if id.IsNil(a.UserID) {
		return "system"
	}
	return a.UserID.String()
}

type actorContextKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns Actor from context.
func GetActor(ctx context.Context) (Actor, bool) {
	v, ok := ctx.Value(actorContextKey{}).(Actor)
	return v, ok
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if a, ok := GetActor(ctx); ok && !id.IsNil(a.UserID) {
		return a.UserID.String()
	}
	return ""
}
