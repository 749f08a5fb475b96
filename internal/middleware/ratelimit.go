package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/policyfence/policyfence/internal/audit"
	"github.com/policyfence/policyfence/internal/config"
	"github.com/policyfence/policyfence/internal/limiter"
	"github.com/policyfence/policyfence/internal/reliability"
)

// RateLimit enforces the matched route's rate-limit rule against the counter
// store. Routes without a rule are unlimited. Store outages honor the
// runtime failure strategy.
func RateLimit(store limiter.Store, runtime *config.RuntimeManager, bus *audit.Bus) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := GetRoute(r.Context())
			if entry == nil || entry.Policy.RateLimit == nil {
				next.ServeHTTP(w, r)
				return
			}
			rule := entry.Policy.RateLimit
			client := ClientIdentity(r)
			keys := limiter.Keys(rule, entry.Method+" "+entry.Pattern, client)

			dec, err := store.Allow(r.Context(), keys, rule.RequestLimit, rule.Window())
			if err != nil {
				strategy := runtime.FailStrategy()
				if reliability.ShouldAllow(strategy, err) {
					log.Printf("rate limiter store error (%s): %v", strategy, err)
					next.ServeHTTP(w, r)
					return
				}
				writeDenial(w, http.StatusServiceUnavailable, "limiter_unavailable", "rate limiter unavailable")
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rule.RequestLimit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(dec.Remaining, 0)))

			if !dec.Allowed {
				if dec.RetryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%d", int(dec.RetryAfter/time.Second)+1))
				}
				bus.Publish(audit.Event{
					Action:   audit.ActionRateLimited,
					ActorID:  client,
					Resource: entry.Method + " " + entry.Pattern,
					Rule:     fmt.Sprintf("%d/%ds", rule.RequestLimit, rule.WindowSeconds),
					Reason:   "counter " + dec.DeniedKey + " over limit",
					Status:   http.StatusTooManyRequests,
				})
				writeDenial(w, http.StatusTooManyRequests, CodeRateLimitExceeded, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
