package policy

import (
	"fmt"
	"strings"
)

// Conflict records an illegal double declaration of one policy kind on one
// route: the group scope already owns that kind for every route in the group.
type Conflict struct {
	Kind     Kind
	Group    string
	Method   string
	Location string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s conflict on %s.%s (%s): declared at both group and method scope", c.Kind, c.Group, c.Method, c.Location)
}

// Resolve computes the effective policy for one route from its group-scope
// and method-scope declarations.
//
// A group-scope declaration of a kind is authoritative for every route in
// the group; a method redeclaring the same kind is a conflict, never an
// override. A kind declared only at method scope applies to that route
// alone. A kind declared at neither scope stays absent.
func Resolve(group, method *Declaration) (Resolved, []Kind) {
	var res Resolved
	var conflicts []Kind

	for _, k := range []Kind{KindAuth, KindRateLimit, KindIPRule} {
		g := group.declares(k)
		m := method.declares(k)
		switch {
		case g && m:
			conflicts = append(conflicts, k)
		case g:
			res.set(k, group)
		case m:
			res.set(k, method)
		}
	}
	return res, conflicts
}

func (r *Resolved) set(k Kind, from *Declaration) {
	switch k {
	case KindAuth:
		r.Auth = from.Auth
	case KindRateLimit:
		r.RateLimit = from.RateLimit
	case KindIPRule:
		r.IP = from.IP
	}
}

// ConflictError aggregates every conflict found across a declaration set.
// It aborts startup: a registry is never built from conflicting declarations.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	msgs := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		msgs[i] = c.String()
	}
	return fmt.Sprintf("%d policy conflict(s): %s", len(e.Conflicts), strings.Join(msgs, "; "))
}
