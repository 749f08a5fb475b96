package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrAuthenticationFailed covers missing, malformed, expired and
	// bad-signature tokens. Validation fails closed: a broken token is
	// always "unauthenticated", never "role missing".
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrAuthorizationDenied means a valid principal lacks a required role.
	// Kept distinct from ErrAuthenticationFailed for audit purposes.
	ErrAuthorizationDenied = errors.New("authorization denied")
)

// token_type claim values. The request pipeline accepts only access tokens;
// the refresh endpoint accepts only refresh tokens.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims carried by issued tokens: subject, unique token id, issued-at,
// expiry, role claims and the token_type marker.
type Claims struct {
	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 tokens with a pre-shared symmetric key.
type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	leeway     time.Duration
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// DefaultLeeway is the clock-skew tolerance applied when none is configured.
const DefaultLeeway = 5 * time.Minute

func NewManager(secret, issuer, audience string, leeway, accessTTL, refreshTTL time.Duration) *Manager {
	if leeway <= 0 {
		leeway = DefaultLeeway
	}
	return &Manager{
		secret:     []byte(secret),
		issuer:     issuer,
		audience:   audience,
		leeway:     leeway,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue signs an access/refresh token pair for a principal.
func (m *Manager) Issue(subject string, roles []string) (access, refresh string, err error) {
	access, err = m.sign(subject, roles, TokenTypeAccess, m.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = m.sign(subject, roles, TokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (m *Manager) sign(subject string, roles []string, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Roles:     roles,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature, issuer, audience and expiry (with the configured
// clock-skew leeway) and that the token carries the wanted token_type.
func (m *Manager) Verify(tokenStr, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithLeeway(m.leeway),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrAuthenticationFailed
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: token_type %q where %q required", ErrAuthenticationFailed, claims.TokenType, wantType)
	}
	return claims, nil
}

// CheckRoles enforces a required-role set with union semantics: an empty set
// admits any authenticated principal, a non-empty set admits a principal
// holding at least one listed role.
func CheckRoles(required []string, claims *Claims) error {
	if len(required) == 0 {
		return nil
	}
	for _, want := range required {
		for _, have := range claims.Roles {
			if want == have {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: principal %s holds none of the required roles %v", ErrAuthorizationDenied, claims.Subject, required)
}
