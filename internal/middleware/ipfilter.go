package middleware

import (
	"net/http"

	"github.com/policyfence/policyfence/internal/audit"
	"github.com/policyfence/policyfence/internal/ipfilter"
)

// IPFilter enforces the matched route's IP rule. A blocked caller gets a 403
// and the pipeline stops; routes without an IP rule pass straight through.
func IPFilter(f *ipfilter.Filter, bus *audit.Bus) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := GetRoute(r.Context())
			if entry == nil || entry.Policy.IP == nil {
				next.ServeHTTP(w, r)
				return
			}

			addr, err := ipfilter.ParseRemoteAddr(r.RemoteAddr)
			if err != nil {
				// Fail closed: an address we cannot parse cannot be checked.
				writeDenial(w, http.StatusForbidden, CodeIPBlocked, "forbidden")
				return
			}

			if err := f.Check(addr, entry.Policy.IP); err != nil {
				bus.Publish(audit.Event{
					Action:   audit.ActionIPBlocked,
					ActorID:  addr.String(),
					Resource: entry.Method + " " + entry.Pattern,
					Rule:     entry.Policy.Describe(),
					Reason:   err.Error(),
					Status:   http.StatusForbidden,
				})
				writeDenial(w, http.StatusForbidden, CodeIPBlocked, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
