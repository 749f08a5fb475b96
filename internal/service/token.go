package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/policyfence/policyfence/internal/auth"
	"github.com/policyfence/policyfence/internal/cache"
	"github.com/policyfence/policyfence/internal/db"
	"github.com/policyfence/policyfence/internal/repository"
)

// ErrInvalidCredentials covers unknown users and wrong passwords alike, so
// the login surface never reveals which one it was.
var ErrInvalidCredentials = errors.New("invalid credentials")

// TokenPair is what the issuance surface hands back to a caller.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService checks credentials and issues JWT pairs.
type TokenService struct {
	users   repository.UserRepository
	manager *auth.Manager
	cache   *cache.MemoryCache
}

func NewTokenService(users repository.UserRepository, manager *auth.Manager, c *cache.MemoryCache) *TokenService {
	return &TokenService{
		users:   users,
		manager: manager,
		cache:   c,
	}
}

// Login verifies a username/password pair against the user store and issues
// an access/refresh token pair carrying the user's roles.
func (s *TokenService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issue(user)
}

// Refresh exchanges a valid refresh token for a fresh pair. Access tokens
// are rejected here the same way refresh tokens are rejected by the request
// pipeline.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.manager.Verify(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	access, refresh, err := s.manager.Issue(claims.Subject, claims.Roles)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) lookup(ctx context.Context, username string) (*db.User, error) {
	cacheKey := "user:" + username
	if val, found := s.cache.Get(cacheKey); found {
		if u, ok := val.(*db.User); ok {
			return u, nil
		}
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey, user, 1*time.Minute)
	return user, nil
}

func (s *TokenService) issue(user *db.User) (TokenPair, error) {
	access, refresh, err := s.manager.Issue(user.ID, user.Roles)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Register hashes a password and stores a new user. Used by startup seeding
// and tests; there is no self-service signup surface.
func (s *TokenService) Register(ctx context.Context, id, username, password string, roles []string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.CreateUser(ctx, &db.User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	})
}
