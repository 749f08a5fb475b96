package policy

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Kind identifies one of the three independently resolved policy concerns.
type Kind int

const (
	KindAuth Kind = iota
	KindRateLimit
	KindIPRule
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindIPRule:
		return "ip_rule"
	}
	return "unknown"
}

// Mechanism is the authentication scheme a route demands.
type Mechanism int

const (
	MechanismNone Mechanism = iota
	MechanismBearer
)

// AuthRequirement demands a verified principal. An empty RequiredRoles set
// admits any authenticated principal; a non-empty set admits a principal
// holding at least one of the listed roles.
type AuthRequirement struct {
	Mechanism     Mechanism
	RequiredRoles []string
}

// RateLimitRule caps requests per fixed window. GlobalTags name counters
// shared across all clients; IndividualTags name counters scoped per client
// identity. With no tags, the counter is scoped to the route and client.
type RateLimitRule struct {
	RequestLimit   int
	WindowSeconds  int
	GlobalTags     []string
	IndividualTags []string
}

func (r RateLimitRule) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// IPRule admits or blocks callers by CIDR membership. Blacklist matches are
// blocked unconditionally; the whitelist is enforced only in production mode
// and only when non-empty.
type IPRule struct {
	Blacklist                    []netip.Prefix
	Whitelist                    []netip.Prefix
	EnforceWhitelistInProduction bool
}

// Declaration is the set of policy kinds attached at one scope (handler
// group or individual route). Nil fields mean the kind is not declared at
// that scope. Declarations are never mutated after registration.
type Declaration struct {
	Auth      *AuthRequirement
	RateLimit *RateLimitRule
	IP        *IPRule
}

func (d *Declaration) declares(k Kind) bool {
	if d == nil {
		return false
	}
	switch k {
	case KindAuth:
		return d.Auth != nil
	case KindRateLimit:
		return d.RateLimit != nil
	case KindIPRule:
		return d.IP != nil
	}
	return false
}

// Resolved is the single effective policy for one route. Nil fields mean no
// restriction for auth/IP and unlimited for the rate limit.
type Resolved struct {
	Auth      *AuthRequirement
	RateLimit *RateLimitRule
	IP        *IPRule
}

// Describe renders a resolved policy for diagnostics and the admin listing.
func (r Resolved) Describe() string {
	var parts []string
	if r.Auth != nil {
		if len(r.Auth.RequiredRoles) == 0 {
			parts = append(parts, "auth=any-principal")
		} else {
			parts = append(parts, "auth=roles("+strings.Join(r.Auth.RequiredRoles, "|")+")")
		}
	}
	if r.RateLimit != nil {
		parts = append(parts, fmt.Sprintf("rate_limit=%d/%ds", r.RateLimit.RequestLimit, r.RateLimit.WindowSeconds))
	}
	if r.IP != nil {
		parts = append(parts, fmt.Sprintf("ip_rule=blacklist(%d),whitelist(%d)", len(r.IP.Blacklist), len(r.IP.Whitelist)))
	}
	if len(parts) == 0 {
		return "unrestricted"
	}
	return strings.Join(parts, " ")
}

// MustPrefixes parses CIDR literals for declaration tables. It panics on a
// bad literal: declarations are static registration data, a typo there is a
// programming error caught at startup.
func MustPrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, netip.MustParsePrefix(c))
	}
	return out
}
