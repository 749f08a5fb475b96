package ipfilter

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/policyfence/policyfence/internal/policy"
)

// ErrBlocked means the caller's address is denied by the route's IP rule.
var ErrBlocked = errors.New("ip blocked")

// Filter evaluates IP rules. The production flag gates whitelist
// enforcement; blacklists apply in every environment.
type Filter struct {
	production bool
}

func New(production bool) *Filter {
	return &Filter{production: production}
}

// Check applies a resolved IP rule to a caller address. A blacklist match
// blocks unconditionally and takes precedence over any whitelist entry. The
// whitelist is enforced only in production mode, only when the rule opts in,
// and only when it is non-empty.
func (f *Filter) Check(addr netip.Addr, rule *policy.IPRule) error {
	if rule == nil {
		return nil
	}
	addr = addr.Unmap()

	for _, p := range rule.Blacklist {
		if p.Contains(addr) {
			return fmt.Errorf("%w: %s matches blacklist range %s", ErrBlocked, addr, p)
		}
	}

	if f.production && rule.EnforceWhitelistInProduction && len(rule.Whitelist) > 0 {
		for _, p := range rule.Whitelist {
			if p.Contains(addr) {
				return nil
			}
		}
		return fmt.Errorf("%w: %s matches no whitelist range", ErrBlocked, addr)
	}
	return nil
}

// ParseRemoteAddr extracts the caller address from an http.Request
// RemoteAddr, which normally carries a host:port pair.
func ParseRemoteAddr(remoteAddr string) (netip.Addr, error) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// Some test servers hand over a bare address.
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("unparseable remote address %q: %w", remoteAddr, err)
	}
	return addr, nil
}
