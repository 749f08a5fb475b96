// Command policycheck runs the canonical policy conflict validator over the
// registered handler groups and prints its diagnostics, without starting the
// server. Wire it into CI to catch conflicting declarations at build time;
// the startup path delegates to the exact same validator.
package main

import (
	"fmt"
	"os"

	"github.com/policyfence/policyfence/internal/handlers"
	"github.com/policyfence/policyfence/internal/policy"
	"github.com/policyfence/policyfence/internal/registry"
)

func main() {
	groups := handlers.Groups()
	// Handlers are never invoked here; declarations are all that matter.
	groups = append(groups, handlers.AuthGroup(nil))

	diags, err := policy.Validate(registry.Declarations(groups))
	for _, d := range diags {
		fmt.Println(d)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "policycheck: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("policycheck: %d group(s) clean\n", len(groups))
}
