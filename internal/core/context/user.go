// Package context carries request-scoped values: the acting staff member and trace ids.
package context

import (
	"context"
	"slices"

	"pharmledger/internal/core/id"
)

// UserContext identifies the authenticated staff member (the actor).
type UserContext struct {
	UserID      id.ID
	Email       string
	Role        string
	Permissions []string
	IsAdmin     bool
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns the actor id, or the nil id for anonymous/system calls.
func GetUserID(ctx context.Context) id.ID {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return id.Nil()
}

// HasPermission reports whether the actor holds perm. Admins hold all.
func HasPermission(ctx context.Context, perm string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	return u.IsAdmin || slices.Contains(u.Permissions, perm)
}
