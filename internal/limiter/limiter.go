package limiter

import (
	"context"
	"time"

	"github.com/policyfence/policyfence/internal/policy"
)

// Decision is the outcome of a fixed-window check across one rule's keys.
// A denial is a Decision, not an error; errors mean the store itself failed.
type Decision struct {
	Allowed bool
	// DeniedKey names the counter that triggered a denial.
	DeniedKey string
	// Remaining is the smallest remaining capacity across the checked keys.
	Remaining int
	// RetryAfter is the time until the denying counter's window resets.
	RetryAfter time.Duration
}

// Store checks and increments a set of counters sharing one limit and
// window. The whole operation is atomic: either every key is incremented or,
// on denial, none is.
type Store interface {
	Allow(ctx context.Context, keys []string, limit int, window time.Duration) (Decision, error)
}

// Keys computes the counter keys a rule demands for one route and client:
// one per global tag (shared across all clients), one per individual tag
// combined with the client identity, or a default route+client key when the
// rule declares no tags.
func Keys(rule *policy.RateLimitRule, routeKey, client string) []string {
	n := len(rule.GlobalTags) + len(rule.IndividualTags)
	if n == 0 {
		return []string{"rl:route:" + routeKey + ":client:" + client}
	}
	keys := make([]string, 0, n)
	for _, tag := range rule.GlobalTags {
		keys = append(keys, "rl:tag:"+tag)
	}
	for _, tag := range rule.IndividualTags {
		keys = append(keys, "rl:tag:"+tag+":client:"+client)
	}
	return keys
}
