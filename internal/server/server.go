package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/policyfence/policyfence/internal/audit"
	"github.com/policyfence/policyfence/internal/auth"
	"github.com/policyfence/policyfence/internal/cache"
	"github.com/policyfence/policyfence/internal/config"
	"github.com/policyfence/policyfence/internal/handlers"
	"github.com/policyfence/policyfence/internal/ipfilter"
	"github.com/policyfence/policyfence/internal/limiter"
	"github.com/policyfence/policyfence/internal/metrics"
	"github.com/policyfence/policyfence/internal/middleware"
	"github.com/policyfence/policyfence/internal/registry"
	"github.com/policyfence/policyfence/internal/reliability"
	"github.com/policyfence/policyfence/internal/repository/memory"
	"github.com/policyfence/policyfence/internal/service"
)

type Server struct {
	cfg         *config.Config
	registry    *registry.Registry
	manager     *auth.Manager
	tokens      *service.TokenService
	store       limiter.Store
	runtime     *config.RuntimeManager
	metrics     *metrics.Collector
	bus         *audit.Bus
	redisClient *redis.Client
	filter      *ipfilter.Filter
}

// New wires every collaborator and builds the route registry. A policy
// conflict in the registered declarations is returned as an error: the
// server must not start with an ambiguous route policy.
func New(cfg *config.Config) (*Server, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	var store limiter.Store
	if cfg.LimiterBackend == "redis" {
		store = limiter.NewRedisStore(rdb)
	} else {
		store = limiter.NewMemoryStore()
	}

	manager := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.ClockSkew, cfg.AccessTokenTTL, cfg.RefreshTTL)

	repo := memory.New()
	tokens := service.NewTokenService(repo, manager, cache.NewMemoryCache())
	seedDemoUsers(tokens)

	s := &Server{
		cfg:         cfg,
		manager:     manager,
		tokens:      tokens,
		store:       store,
		runtime:     config.NewRuntimeManager(reliability.Strategy(cfg.FailStrategy)),
		metrics:     metrics.NewCollector(1000),
		bus:         audit.NewBus(audit.NewJSONSink(os.Stdout)),
		redisClient: rdb,
		filter:      ipfilter.New(cfg.IsProduction()),
	}

	groups := handlers.Groups()
	groups = append(groups, handlers.AuthGroup(tokens))
	groups = append(groups, s.opsGroup(), s.adminGroup())

	reg, err := registry.Build(groups)
	if err != nil {
		return nil, fmt.Errorf("building route registry: %w", err)
	}
	s.registry = reg

	for _, d := range reg.Diagnostics() {
		log.Printf("policy: %s", d)
	}
	return s, nil
}

func seedDemoUsers(tokens *service.TokenService) {
	ctx := context.Background()
	// Demo credentials; a real deployment replaces the in-memory user store.
	tokens.Register(ctx, "user-admin", "admin", "admin-password", []string{"admin"})
	tokens.Register(ctx, "user-alice", "alice", "alice-password", []string{"viewer"})
}

// Handler assembles the full request path: outer observability chain, route
// match, enforcement pipeline, dispatch.
func (s *Server) Handler() http.Handler {
	pipeline := middleware.Pipeline(middleware.PipelineDeps{
		Filter:  s.filter,
		Auth:    s.manager,
		Store:   s.store,
		Runtime: s.runtime,
		Bus:     s.bus,
	})

	dispatch := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.GetRoute(r.Context()).Handler.ServeHTTP(w, r)
	})
	enforced := pipeline(dispatch)

	match := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry, params, ok := s.registry.Match(r.Method, r.URL.Path)
		if !ok {
			if s.registry.Allowed(r.URL.Path) {
				http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
				return
			}
			http.NotFound(w, r)
			return
		}
		ctx := middleware.WithRoute(r.Context(), entry)
		ctx = registry.WithParams(ctx, params)
		enforced.ServeHTTP(w, r.WithContext(ctx))
	})

	return middleware.Chain(match,
		middleware.Metrics(s.metrics),
		middleware.AuditRequests(s.bus),
	)
}

func (s *Server) Start() error {
	srv := &http.Server{
		Addr:    ":" + s.cfg.ServerPort,
		Handler: s.Handler(),
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Printf("Server starting on port %s (env=%s, limiter=%s)", s.cfg.ServerPort, s.cfg.Environment, s.cfg.LimiterBackend)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Printf("main: %v : Start shutdown", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
