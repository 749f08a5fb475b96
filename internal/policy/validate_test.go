package policy

import (
	"reflect"
	"testing"
)

func declSet() []GroupDecl {
	return []GroupDecl{
		{
			Name: "ReportHandlers",
			Declaration: &Declaration{
				Auth:      &AuthRequirement{Mechanism: MechanismBearer, RequiredRoles: []string{"admin"}},
				RateLimit: &RateLimitRule{RequestLimit: 20, WindowSeconds: 600},
			},
			Methods: []MethodDecl{
				{Name: "List", Location: "GET /api/reports"},
				{
					Name:        "Get",
					Location:    "GET /api/reports/{id}",
					Declaration: &Declaration{Auth: &AuthRequirement{Mechanism: MechanismBearer}},
				},
				{
					Name:     "Export",
					Location: "GET /api/reports/export",
					Declaration: &Declaration{
						RateLimit: &RateLimitRule{RequestLimit: 2, WindowSeconds: 60},
						IP:        &IPRule{Blacklist: MustPrefixes("10.0.0.0/24")},
					},
				},
			},
		},
		{
			Name: "PublicHandlers",
			Methods: []MethodDecl{
				{Name: "Ping", Location: "GET /api/ping"},
			},
		},
	}
}

func TestValidate_ReportsEveryConflictExhaustively(t *testing.T) {
	diags, err := Validate(declSet())

	cerr, ok := err.(*ConflictError)
	if !ok {
		t.Fatalf("expected *ConflictError, got %v", err)
	}
	// Get redeclares auth, Export redeclares rate limit. IP on Export is
	// method-only and clean.
	if len(cerr.Conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d: %v", len(cerr.Conflicts), cerr.Conflicts)
	}

	want := []Conflict{
		{Kind: KindAuth, Group: "ReportHandlers", Method: "Get", Location: "GET /api/reports/{id}"},
		{Kind: KindRateLimit, Group: "ReportHandlers", Method: "Export", Location: "GET /api/reports/export"},
	}
	if !reflect.DeepEqual(cerr.Conflicts, want) {
		t.Errorf("conflicts = %v, want %v", cerr.Conflicts, want)
	}

	codes := map[string]int{}
	for _, d := range diags {
		codes[d.Code]++
	}
	if codes[CodeAuthConflict] != 1 || codes[CodeRateLimitConflict] != 1 {
		t.Errorf("expected one PF001 and one PF002 diagnostic, got %v", codes)
	}
	if codes[CodeIPRuleConflict] != 0 {
		t.Errorf("expected no PF003 diagnostic, got %v", codes)
	}
}

func TestValidate_CleanSetEmitsInheritedInfo(t *testing.T) {
	groups := []GroupDecl{
		{
			Name:        "StatusHandlers",
			Declaration: &Declaration{RateLimit: &RateLimitRule{RequestLimit: 100, WindowSeconds: 60}},
			Methods: []MethodDecl{
				{Name: "Health", Location: "GET /health"},
				{Name: "Ready", Location: "GET /ready"},
			},
		},
	}

	diags, err := Validate(groups)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(diags) != 2 {
		t.Fatalf("expected 2 informational diagnostics, got %d", len(diags))
	}
	for _, d := range diags {
		if d.Code != CodeInheritedPolicy || d.Severity != SeverityInfo {
			t.Errorf("unexpected diagnostic %v", d)
		}
	}
}

func TestValidate_IPRuleConflict(t *testing.T) {
	groups := []GroupDecl{
		{
			Name:        "InternalHandlers",
			Declaration: &Declaration{IP: &IPRule{Whitelist: MustPrefixes("192.168.1.0/24"), EnforceWhitelistInProduction: true}},
			Methods: []MethodDecl{
				{
					Name:        "Debug",
					Location:    "GET /internal/debug",
					Declaration: &Declaration{IP: &IPRule{Blacklist: MustPrefixes("0.0.0.0/0")}},
				},
			},
		},
	}

	diags, err := Validate(groups)
	if err == nil {
		t.Fatal("expected a conflict error")
	}
	if len(diags) != 1 || diags[0].Code != CodeIPRuleConflict {
		t.Fatalf("expected a single PF003 diagnostic, got %v", diags)
	}
	if diags[0].Group != "InternalHandlers" || diags[0].Method != "Debug" {
		t.Errorf("diagnostic names wrong group/method: %v", diags[0])
	}
}

func TestValidate_Idempotent(t *testing.T) {
	groups := declSet()
	d1, e1 := Validate(groups)
	d2, e2 := Validate(groups)
	if !reflect.DeepEqual(d1, d2) {
		t.Error("validating twice gave different diagnostics")
	}
	if !reflect.DeepEqual(e1, e2) {
		t.Error("validating twice gave different errors")
	}
}
