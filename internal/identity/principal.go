package identity

import (
	"context"

	"github.com/Additional-Code/procura/internal/entity"
)

// Principal is an authenticated caller. The core trusts its identity and role.
type Principal struct {
	UserID int64
	Role   entity.Role
	Email  string
}

type principalKey struct{}

// WithPrincipal stores p on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
