package middleware

import (
	"context"

	"github.com/nochance19900208-source/Real-Estate/internal/users"
)

type contextKey string

const (
	ctxUser contextKey = "current_user"
)

// UserFromContext returns the authenticated account seeded by Auth, or nil.
func UserFromContext(ctx context.Context) *users.User {
	if ctx == nil {
		return nil
	}
	if u, ok := ctx.Value(ctxUser).(*users.User); ok {
		return u
	}
	return nil
}

// WithUser injects the authenticated account into the context.
func WithUser(ctx context.Context, user *users.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUser, user)
}
