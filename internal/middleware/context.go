package middleware

import (
	"context"
	"net/http"

	"github.com/policyfence/policyfence/internal/auth"
	"github.com/policyfence/policyfence/internal/ipfilter"
	"github.com/policyfence/policyfence/internal/registry"
)

type contextKey string

const (
	routeContextKey contextKey = "route"
	userContextKey  contextKey = "user"
)

// WithRoute attaches the matched registry entry. Every pipeline stage acts
// on this single resolved policy; stages never re-resolve.
func WithRoute(ctx context.Context, entry *registry.Entry) context.Context {
	return context.WithValue(ctx, routeContextKey, entry)
}

func GetRoute(ctx context.Context) *registry.Entry {
	if e, ok := ctx.Value(routeContextKey).(*registry.Entry); ok {
		return e
	}
	return nil
}

// WithUser attaches the authenticated principal's claims.
func WithUser(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

func GetUser(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(userContextKey).(*auth.Claims); ok {
		return c
	}
	return nil
}

// ClientIdentity is the rate-limit partition key for a caller: the principal
// subject once authenticated, the caller IP otherwise.
func ClientIdentity(r *http.Request) string {
	if claims := GetUser(r.Context()); claims != nil {
		return claims.Subject
	}
	if addr, err := ipfilter.ParseRemoteAddr(r.RemoteAddr); err == nil {
		return addr.String()
	}
	return r.RemoteAddr
}
