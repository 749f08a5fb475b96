package middleware

import (
	"net/http"
	"time"

	"github.com/policyfence/policyfence/internal/audit"
)

// AuditRequests records one event per request on the outer chain. It runs
// before route matching, so the actor is the caller address; denial events
// published inside the pipeline carry the authenticated principal.
func AuditRequests(bus *audit.Bus) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriterInterceptor{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			bus.Publish(audit.Event{
				Timestamp: start,
				Action:    audit.ActionRequest,
				ActorID:   r.RemoteAddr,
				Resource:  r.Method + " " + r.URL.Path,
				Status:    rw.statusCode,
				Metadata: map[string]interface{}{
					"duration_ms": time.Since(start).Milliseconds(),
				},
			})
		})
	}
}
