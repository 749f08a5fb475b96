package middleware

import (
	"net/http"

	"github.com/policyfence/policyfence/internal/audit"
	"github.com/policyfence/policyfence/internal/auth"
	"github.com/policyfence/policyfence/internal/config"
	"github.com/policyfence/policyfence/internal/ipfilter"
	"github.com/policyfence/policyfence/internal/limiter"
)

// PipelineDeps carries the collaborators the enforcement stages need. They
// are passed in explicitly; the pipeline holds no global state.
type PipelineDeps struct {
	Filter  *ipfilter.Filter
	Auth    *auth.Manager
	Store   limiter.Store
	Runtime *config.RuntimeManager
	Bus     *audit.Bus
}

// Pipeline composes the fixed, short-circuiting enforcement order applied to
// every matched route: secure headers, IP filter, authentication, rate
// limiting, then the wrapped handler. The matched route entry must already
// be on the request context.
func Pipeline(deps PipelineDeps) Middleware {
	stages := []Middleware{
		SecureHeaders(),
		IPFilter(deps.Filter, deps.Bus),
		Auth(deps.Auth, deps.Bus),
		RateLimit(deps.Store, deps.Runtime, deps.Bus),
	}
	return func(next http.Handler) http.Handler {
		return Chain(next, stages...)
	}
}
