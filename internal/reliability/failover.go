package reliability

// Strategy decides what happens to traffic when the counter store is
// unreachable.
type Strategy string

const (
	FailOpen   Strategy = "fail_open"
	FailClosed Strategy = "fail_closed"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s == FailOpen || s == FailClosed
}

// ShouldAllow determines whether a request proceeds given a store error.
// Rate limiting is advisory against abuse, not a transactional ledger, so
// fail-open is a legitimate default; fail-closed trades availability for
// strict enforcement.
func ShouldAllow(strategy Strategy, err error) bool {
	if err == nil {
		return true
	}
	return strategy == FailOpen
}
