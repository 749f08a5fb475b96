package policy

import "fmt"

// Diagnostic codes emitted by the validator. One stable code per conflict
// kind, plus an informational code for a successfully inherited policy.
const (
	CodeAuthConflict      = "PF001"
	CodeRateLimitConflict = "PF002"
	CodeIPRuleConflict    = "PF003"
	CodeInheritedPolicy   = "PF100"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// Diagnostic is one validator finding, suitable for both the build-time lint
// entry point and startup logging.
type Diagnostic struct {
	Code     string
	Severity Severity
	Group    string
	Method   string
	Location string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s %s.%s: %s", d.Code, d.Severity, d.Group, d.Method, d.Message)
}

// GroupDecl is the validator's view of one handler group: its group-scope
// declaration and the declarations of every route-exposing method in it.
type GroupDecl struct {
	Name        string
	Declaration *Declaration
	Methods     []MethodDecl
}

type MethodDecl struct {
	Name        string
	Location    string
	Declaration *Declaration
}

func conflictCode(k Kind) string {
	switch k {
	case KindAuth:
		return CodeAuthConflict
	case KindRateLimit:
		return CodeRateLimitConflict
	default:
		return CodeIPRuleConflict
	}
}

// Validate runs the scope-precedence rule over every method of every group.
// Conflicts are reported exhaustively, one diagnostic per offending kind per
// method, never short-circuited on the first finding. A non-empty conflict
// set yields a *ConflictError; the informational diagnostics describe the
// resolved policy of every clean route that inherits from its group.
//
// This is the one canonical conflict check: the startup path and the lint
// command both delegate here.
func Validate(groups []GroupDecl) ([]Diagnostic, error) {
	var diags []Diagnostic
	var conflicts []Conflict

	for _, g := range groups {
		for _, m := range g.Methods {
			resolved, bad := Resolve(g.Declaration, m.Declaration)
			for _, k := range bad {
				conflicts = append(conflicts, Conflict{
					Kind:     k,
					Group:    g.Name,
					Method:   m.Name,
					Location: m.Location,
				})
				diags = append(diags, Diagnostic{
					Code:     conflictCode(k),
					Severity: SeverityError,
					Group:    g.Name,
					Method:   m.Name,
					Location: m.Location,
					Message:  fmt.Sprintf("%s policy declared at both group and method scope; the group declaration is authoritative and must not be redeclared", k),
				})
			}
			if len(bad) == 0 && inheritsAny(g.Declaration, m.Declaration) {
				diags = append(diags, Diagnostic{
					Code:     CodeInheritedPolicy,
					Severity: SeverityInfo,
					Group:    g.Name,
					Method:   m.Name,
					Location: m.Location,
					Message:  "inherits group policy: " + resolved.Describe(),
				})
			}
		}
	}

	if len(conflicts) > 0 {
		return diags, &ConflictError{Conflicts: conflicts}
	}
	return diags, nil
}

func inheritsAny(group, method *Declaration) bool {
	for _, k := range []Kind{KindAuth, KindRateLimit, KindIPRule} {
		if group.declares(k) && !method.declares(k) {
			return true
		}
	}
	return false
}
