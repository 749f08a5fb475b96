package registry

import (
	"net/http"
	"testing"

	"github.com/policyfence/policyfence/internal/policy"
)

var nopHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

func TestBuild_ResolvesGroupPolicyOntoRoutes(t *testing.T) {
	groups := []Group{
		{
			Name: "reports",
			Declaration: &policy.Declaration{
				Auth: &policy.AuthRequirement{Mechanism: policy.MechanismBearer, RequiredRoles: []string{"admin"}},
			},
			Routes: []Route{
				{Name: "List", Method: "GET", Pattern: "/api/reports", Handler: nopHandler},
				{Name: "Get", Method: "GET", Pattern: "/api/reports/{id}", Handler: nopHandler},
			},
		},
	}

	reg, err := Build(groups)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, e := range reg.Entries() {
		if e.Policy.Auth == nil || len(e.Policy.Auth.RequiredRoles) != 1 {
			t.Errorf("entry %s.%s did not inherit the group auth policy", e.Group, e.Name)
		}
	}
	if len(reg.Diagnostics()) != 2 {
		t.Errorf("expected 2 inherited-policy diagnostics, got %d", len(reg.Diagnostics()))
	}
}

func TestBuild_ConflictAbortsBuild(t *testing.T) {
	groups := []Group{
		{
			Name:        "reports",
			Declaration: &policy.Declaration{RateLimit: &policy.RateLimitRule{RequestLimit: 10, WindowSeconds: 60}},
			Routes: []Route{
				{
					Name:        "Get",
					Method:      "GET",
					Pattern:     "/api/reports/{id}",
					Declaration: &policy.Declaration{RateLimit: &policy.RateLimitRule{RequestLimit: 100, WindowSeconds: 60}},
					Handler:     nopHandler,
				},
			},
		},
	}

	reg, err := Build(groups)
	if reg != nil {
		t.Error("a conflicting declaration set must not produce a registry")
	}
	if _, ok := err.(*policy.ConflictError); !ok {
		t.Fatalf("expected *policy.ConflictError, got %v", err)
	}
}

func TestBuild_DuplicateRouteRejected(t *testing.T) {
	groups := []Group{
		{Name: "a", Routes: []Route{{Name: "One", Method: "GET", Pattern: "/api/thing", Handler: nopHandler}}},
		{Name: "b", Routes: []Route{{Name: "Two", Method: "GET", Pattern: "/api/thing", Handler: nopHandler}}},
	}
	if _, err := Build(groups); err == nil {
		t.Fatal("expected duplicate route registration to fail")
	}
}

func buildTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Build([]Group{
		{
			Name: "reports",
			Routes: []Route{
				{Name: "List", Method: "GET", Pattern: "/api/reports", Handler: nopHandler},
				{Name: "Get", Method: "GET", Pattern: "/api/reports/{id}", Handler: nopHandler},
				{Name: "Export", Method: "GET", Pattern: "/api/reports/export", Handler: nopHandler},
				{Name: "Create", Method: "POST", Pattern: "/api/reports", Handler: nopHandler},
			},
		},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return reg
}

func TestMatch_ExactAndPlaceholder(t *testing.T) {
	reg := buildTestRegistry(t)

	e, params, ok := reg.Match("GET", "/api/reports/42")
	if !ok || e.Name != "Get" {
		t.Fatalf("expected Get entry, got %v ok=%v", e, ok)
	}
	if params["id"] != "42" {
		t.Errorf("expected id=42, got %q", params["id"])
	}

	e, _, ok = reg.Match("GET", "/api/reports")
	if !ok || e.Name != "List" {
		t.Errorf("expected List entry, got %v ok=%v", e, ok)
	}
}

func TestMatch_LiteralBeatsPlaceholder(t *testing.T) {
	reg := buildTestRegistry(t)
	e, _, ok := reg.Match("GET", "/api/reports/export")
	if !ok || e.Name != "Export" {
		t.Errorf("literal segment should beat placeholder, got %v", e)
	}
}

func TestMatch_MethodMismatch(t *testing.T) {
	reg := buildTestRegistry(t)
	if _, _, ok := reg.Match("DELETE", "/api/reports"); ok {
		t.Error("DELETE should not match a GET/POST route")
	}
	if !reg.Allowed("/api/reports") {
		t.Error("Allowed should report the path exists under another method")
	}
	if reg.Allowed("/api/nothing") {
		t.Error("Allowed should be false for an unknown path")
	}
}

func TestMatch_NoMatch(t *testing.T) {
	reg := buildTestRegistry(t)
	if _, _, ok := reg.Match("GET", "/api/reports/42/extra"); ok {
		t.Error("longer path should not match")
	}
}
