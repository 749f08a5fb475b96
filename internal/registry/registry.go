package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/policyfence/policyfence/internal/policy"
)

// Route is one registered operation: an HTTP method, a path pattern that may
// contain {name} placeholders, an optional method-scope declaration, and the
// handler to dispatch to.
type Route struct {
	Name        string
	Method      string
	Pattern     string
	Declaration *policy.Declaration
	Handler     http.Handler
}

// Group is the registration surface a handler module exposes: a named set of
// routes with an optional group-scope declaration. Groups replace any kind of
// runtime type scanning; the registry consumes them once at startup.
type Group struct {
	Name        string
	Declaration *policy.Declaration
	Routes      []Route
}

// Entry is one immutable registry row: the route plus its resolved policy.
type Entry struct {
	Name     string
	Method   string
	Pattern  string
	Group    string
	Policy   policy.Resolved
	Handler  http.Handler
	segments []segment
}

type segment struct {
	literal string
	param   string // non-empty for {name} placeholders
}

// Registry is built once, single-threaded, before serving starts and is
// read-only thereafter.
type Registry struct {
	entries []*Entry
	diags   []policy.Diagnostic
}

// Declarations projects groups into the validator's input shape. The lint
// command uses this directly; Build uses it internally.
func Declarations(groups []Group) []policy.GroupDecl {
	out := make([]policy.GroupDecl, 0, len(groups))
	for _, g := range groups {
		gd := policy.GroupDecl{Name: g.Name, Declaration: g.Declaration}
		for _, r := range g.Routes {
			gd.Methods = append(gd.Methods, policy.MethodDecl{
				Name:        r.Name,
				Location:    r.Method + " " + r.Pattern,
				Declaration: r.Declaration,
			})
		}
		out = append(out, gd)
	}
	return out
}

// Build validates the declaration set, resolves every route and constructs
// the route table. Any policy conflict aborts the build: there is no partial
// registry and no route with an ambiguous live policy.
func Build(groups []Group) (*Registry, error) {
	diags, err := policy.Validate(Declarations(groups))
	if err != nil {
		return nil, err
	}

	reg := &Registry{diags: diags}
	seen := make(map[string]string) // "METHOD pattern" -> group.route

	for _, g := range groups {
		for _, r := range g.Routes {
			key := r.Method + " " + r.Pattern
			if prev, dup := seen[key]; dup {
				return nil, fmt.Errorf("duplicate route %q registered by %s.%s and %s", key, g.Name, r.Name, prev)
			}
			seen[key] = g.Name + "." + r.Name

			segs, err := parsePattern(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("route %s.%s: %w", g.Name, r.Name, err)
			}

			resolved, conflicts := policy.Resolve(g.Declaration, r.Declaration)
			if len(conflicts) > 0 {
				// Validate already rejected conflicting sets; reaching this
				// would mean the two checks disagree.
				return nil, fmt.Errorf("route %s.%s: unresolved policy conflicts %v", g.Name, r.Name, conflicts)
			}

			reg.entries = append(reg.entries, &Entry{
				Name:     r.Name,
				Method:   r.Method,
				Pattern:  r.Pattern,
				Group:    g.Name,
				Policy:   resolved,
				Handler:  r.Handler,
				segments: segs,
			})
		}
	}
	return reg, nil
}

func parsePattern(pattern string) ([]segment, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("pattern %q must start with /", pattern)
	}
	parts := strings.Split(strings.TrimPrefix(pattern, "/"), "/")
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			name := p[1 : len(p)-1]
			if name == "" {
				return nil, fmt.Errorf("pattern %q has an unnamed placeholder", pattern)
			}
			segs = append(segs, segment{param: name})
			continue
		}
		if strings.Contains(p, "{") || strings.Contains(p, "}") {
			return nil, fmt.Errorf("pattern %q has a malformed placeholder segment %q", pattern, p)
		}
		segs = append(segs, segment{literal: p})
	}
	return segs, nil
}

// Match finds the entry for an inbound (method, path) pair and captures any
// placeholder values. When several patterns match, the one with the most
// literal segments wins, so /api/reports/export beats /api/reports/{id}.
func (reg *Registry) Match(method, path string) (*Entry, map[string]string, bool) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSuffix(path, "/"), "/"), "/")

	var best *Entry
	var bestParams map[string]string
	bestScore := -1

	for _, e := range reg.entries {
		if e.Method != method {
			continue
		}
		params, score, ok := matchSegments(e.segments, parts)
		if ok && score > bestScore {
			best, bestParams, bestScore = e, params, score
		}
	}
	if best == nil {
		return nil, nil, false
	}
	return best, bestParams, true
}

// Allowed reports whether any entry matches the path under a different
// method, to distinguish 405 from 404.
func (reg *Registry) Allowed(path string) bool {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSuffix(path, "/"), "/"), "/")
	for _, e := range reg.entries {
		if _, _, ok := matchSegments(e.segments, parts); ok {
			return true
		}
	}
	return false
}

func matchSegments(segs []segment, parts []string) (map[string]string, int, bool) {
	if len(segs) != len(parts) {
		return nil, 0, false
	}
	var params map[string]string
	score := 0
	for i, s := range segs {
		if s.param != "" {
			if parts[i] == "" {
				return nil, 0, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[s.param] = parts[i]
			continue
		}
		if s.literal != parts[i] {
			return nil, 0, false
		}
		score++
	}
	return params, score, true
}

// Entries returns the route table for the admin listing.
func (reg *Registry) Entries() []*Entry {
	return reg.entries
}

// Diagnostics returns the validator's informational output from the build.
func (reg *Registry) Diagnostics() []policy.Diagnostic {
	return reg.diags
}

type contextKey string

const paramsContextKey contextKey = "registry.params"

// WithParams attaches captured path parameters to the request context.
func WithParams(ctx context.Context, params map[string]string) context.Context {
	if len(params) == 0 {
		return ctx
	}
	return context.WithValue(ctx, paramsContextKey, params)
}

// Param returns one captured path parameter, or "" if absent.
func Param(ctx context.Context, name string) string {
	if m, ok := ctx.Value(paramsContextKey).(map[string]string); ok {
		return m[name]
	}
	return ""
}
