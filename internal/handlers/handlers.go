// Package handlers holds the demo handler groups. Each group is plain
// registration data: verb, path pattern, policy declarations and an
// entrypoint, consumed once by the registry at startup and by the
// policycheck lint command.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/policyfence/policyfence/internal/policy"
	"github.com/policyfence/policyfence/internal/registry"
	"github.com/policyfence/policyfence/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Groups returns the demo route groups.
func Groups() []registry.Group {
	return []registry.Group{reportsGroup(), publicGroup(), profileGroup()}
}

// reportsGroup declares auth and rate limiting at group scope; every route
// inherits both and declares nothing of its own.
func reportsGroup() registry.Group {
	return registry.Group{
		Name: "reports",
		Declaration: &policy.Declaration{
			Auth: &policy.AuthRequirement{
				Mechanism:     policy.MechanismBearer,
				RequiredRoles: []string{"admin", "superadmin"},
			},
			RateLimit: &policy.RateLimitRule{RequestLimit: 20, WindowSeconds: 600},
		},
		Routes: []registry.Route{
			{
				Name:    "List",
				Method:  http.MethodGet,
				Pattern: "/api/reports",
				Handler: http.HandlerFunc(listReports),
			},
			{
				Name:    "Get",
				Method:  http.MethodGet,
				Pattern: "/api/reports/{id}",
				Handler: http.HandlerFunc(getReport),
			},
		},
	}
}

// publicGroup carries a shared rate limit and a blacklist at group scope.
func publicGroup() registry.Group {
	return registry.Group{
		Name: "public",
		Declaration: &policy.Declaration{
			RateLimit: &policy.RateLimitRule{
				RequestLimit:  100,
				WindowSeconds: 60,
				GlobalTags:    []string{"public"},
			},
			IP: &policy.IPRule{
				Blacklist: policy.MustPrefixes("198.51.100.0/24"),
			},
		},
		Routes: []registry.Route{
			{
				Name:    "Ping",
				Method:  http.MethodGet,
				Pattern: "/api/public/ping",
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
				}),
			},
			{
				Name:    "Time",
				Method:  http.MethodGet,
				Pattern: "/api/public/time",
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, http.StatusOK, map[string]string{"now": time.Now().UTC().Format(time.RFC3339)})
				}),
			},
		},
	}
}

// profileGroup declares everything at method scope: any authenticated
// principal may read a profile, throttled per caller.
func profileGroup() registry.Group {
	return registry.Group{
		Name: "profile",
		Routes: []registry.Route{
			{
				Name:    "Get",
				Method:  http.MethodGet,
				Pattern: "/api/profile",
				Declaration: &policy.Declaration{
					Auth: &policy.AuthRequirement{Mechanism: policy.MechanismBearer},
					RateLimit: &policy.RateLimitRule{
						RequestLimit:   30,
						WindowSeconds:  60,
						IndividualTags: []string{"profile"},
					},
				},
				Handler: http.HandlerFunc(getProfile),
			},
		},
	}
}

func listReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]string{
		{"id": "1", "title": "Q1 usage"},
		{"id": "2", "title": "Q2 usage"},
	})
}

func getReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    registry.Param(r.Context(), "id"),
		"title": "usage report",
	})
}

func getProfile(w http.ResponseWriter, r *http.Request) {
	// The auth stage already verified the token; claims travel on the
	// context.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AuthGroup exposes the token issuance surface. Login is throttled per
// caller address so one client cannot brute-force credentials; the group
// needs no auth requirement of its own.
func AuthGroup(tokens *service.TokenService) registry.Group {
	return registry.Group{
		Name: "authapi",
		Declaration: &policy.Declaration{
			RateLimit: &policy.RateLimitRule{
				RequestLimit:   10,
				WindowSeconds:  60,
				IndividualTags: []string{"login"},
			},
		},
		Routes: []registry.Route{
			{
				Name:    "Login",
				Method:  http.MethodPost,
				Pattern: "/api/auth/login",
				Handler: loginHandler(tokens),
			},
			{
				Name:    "Refresh",
				Method:  http.MethodPost,
				Pattern: "/api/auth/refresh",
				Handler: refreshHandler(tokens),
			},
		},
	}
}

func loginHandler(tokens *service.TokenService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
		pair, err := tokens.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, pair)
	})
}

func refreshHandler(tokens *service.TokenService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
		pair, err := tokens.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
			return
		}
		writeJSON(w, http.StatusOK, pair)
	})
}
