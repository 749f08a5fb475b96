package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/policyfence/policyfence/internal/audit"
	"github.com/policyfence/policyfence/internal/middleware"
	"github.com/policyfence/policyfence/internal/policy"
	"github.com/policyfence/policyfence/internal/registry"
	"github.com/policyfence/policyfence/internal/reliability"
)

// opsGroup exposes liveness and readiness. No declarations: the probes stay
// reachable whatever else is misconfigured.
func (s *Server) opsGroup() registry.Group {
	return registry.Group{
		Name: "ops",
		Routes: []registry.Route{
			{
				Name:    "Health",
				Method:  http.MethodGet,
				Pattern: "/health",
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
					w.Write([]byte("OK"))
				}),
			},
			{
				Name:    "Ready",
				Method:  http.MethodGet,
				Pattern: "/ready",
				Handler: http.HandlerFunc(s.readyHandler),
			},
		},
	}
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.LimiterBackend == "redis" {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, "Redis Unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

// adminGroup requires the admin role at group scope; every route inherits it.
func (s *Server) adminGroup() registry.Group {
	return registry.Group{
		Name: "admin",
		Declaration: &policy.Declaration{
			Auth: &policy.AuthRequirement{
				Mechanism:     policy.MechanismBearer,
				RequiredRoles: []string{"admin"},
			},
		},
		Routes: []registry.Route{
			{
				Name:    "Routes",
				Method:  http.MethodGet,
				Pattern: "/api/admin/routes",
				Handler: http.HandlerFunc(s.listRoutesHandler),
			},
			{
				Name:    "FailStrategy",
				Method:  http.MethodPost,
				Pattern: "/api/admin/failstrategy",
				Handler: http.HandlerFunc(s.failStrategyHandler),
			},
			{
				Name:    "Metrics",
				Method:  http.MethodGet,
				Pattern: "/api/admin/metrics",
				Handler: http.HandlerFunc(s.metricsHandler),
			},
		},
	}
}

type routeInfo struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
	Group   string `json:"group"`
	Name    string `json:"name"`
	Policy  string `json:"policy"`
}

// listRoutesHandler dumps the registry with each route's resolved policy
// description, the same text the startup diagnostics log.
func (s *Server) listRoutesHandler(w http.ResponseWriter, r *http.Request) {
	entries := s.registry.Entries()
	out := make([]routeInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, routeInfo{
			Method:  e.Method,
			Pattern: e.Pattern,
			Group:   e.Group,
			Name:    e.Name,
			Policy:  e.Policy.Describe(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) failStrategyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategy string `json:"strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !s.runtime.SetFailStrategy(reliability.Strategy(req.Strategy)) {
		http.Error(w, "unknown strategy (want fail_open or fail_closed)", http.StatusBadRequest)
		return
	}

	actorID := "anonymous"
	if claims := middleware.GetUser(r.Context()); claims != nil {
		actorID = claims.Subject
	}
	s.bus.Publish(audit.Event{
		Action:   audit.ActionConfigUpdated,
		ActorID:  actorID,
		Resource: "limiter_fail_strategy",
		Reason:   req.Strategy,
		Status:   http.StatusOK,
	})

	w.Write([]byte("Configuration updated successfully"))
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.metrics.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
