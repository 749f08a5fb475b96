package middleware

import (
	"net/http"
	"strings"

	"github.com/policyfence/policyfence/internal/audit"
	"github.com/policyfence/policyfence/internal/auth"
	"github.com/policyfence/policyfence/internal/policy"
)

// Auth enforces the matched route's authentication requirement. Missing,
// malformed or expired bearer tokens fail closed as unauthenticated (401); a
// valid principal without a required role is denied as unauthorized (403).
func Auth(manager *auth.Manager, bus *audit.Bus) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := GetRoute(r.Context())
			if entry == nil || entry.Policy.Auth == nil || entry.Policy.Auth.Mechanism == policy.MechanismNone {
				next.ServeHTTP(w, r)
				return
			}
			resource := entry.Method + " " + entry.Pattern

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				bus.Publish(audit.Event{
					Action:   audit.ActionAuthnFailed,
					ActorID:  "anonymous",
					Resource: resource,
					Rule:     entry.Policy.Describe(),
					Reason:   "missing bearer token",
					Status:   http.StatusUnauthorized,
				})
				writeDenial(w, http.StatusUnauthorized, CodeAuthnFailed, "missing credentials")
				return
			}

			claims, err := manager.Verify(strings.TrimPrefix(authHeader, "Bearer "), auth.TokenTypeAccess)
			if err != nil {
				bus.Publish(audit.Event{
					Action:   audit.ActionAuthnFailed,
					ActorID:  "anonymous",
					Resource: resource,
					Rule:     entry.Policy.Describe(),
					Reason:   err.Error(),
					Status:   http.StatusUnauthorized,
				})
				writeDenial(w, http.StatusUnauthorized, CodeAuthnFailed, "invalid token")
				return
			}

			if err := auth.CheckRoles(entry.Policy.Auth.RequiredRoles, claims); err != nil {
				bus.Publish(audit.Event{
					Action:   audit.ActionAuthzDenied,
					ActorID:  claims.Subject,
					Resource: resource,
					Rule:     entry.Policy.Describe(),
					Reason:   err.Error(),
					Status:   http.StatusForbidden,
				})
				writeDenial(w, http.StatusForbidden, CodeAuthzDenied, "insufficient role")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
		})
	}
}
