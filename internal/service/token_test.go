package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/policyfence/policyfence/internal/auth"
	"github.com/policyfence/policyfence/internal/cache"
	"github.com/policyfence/policyfence/internal/db"
	"github.com/policyfence/policyfence/internal/repository"
)

// MockUserRepo
type MockUserRepo struct {
	users    map[string]*db.User
	getCalls int
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{users: make(map[string]*db.User)}
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*db.User, error) {
	m.getCalls++
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepo) CreateUser(ctx context.Context, user *db.User) error {
	m.users[user.Username] = user
	return nil
}

func newTestService(repo repository.UserRepository) *TokenService {
	manager := auth.NewManager("secret", "policyfence", "policyfence-api", time.Second, time.Hour, 24*time.Hour)
	return NewTokenService(repo, manager, cache.NewMemoryCache())
}

func TestTokenService_LoginIssuesPair(t *testing.T) {
	repo := NewMockUserRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if err := svc.Register(ctx, "user-1", "alice", "s3cret", []string{"admin"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	pair, err := svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens in the pair")
	}

	claims, err := svc.manager.Verify(pair.AccessToken, auth.TokenTypeAccess)
	if err != nil {
		t.Fatalf("issued access token does not verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Errorf("roles = %v, want [admin]", claims.Roles)
	}
}

func TestTokenService_LoginRejectsBadCredentials(t *testing.T) {
	repo := NewMockUserRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if err := svc.Register(ctx, "user-1", "alice", "s3cret", nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password should be ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user should be ErrInvalidCredentials, got %v", err)
	}
}

func TestTokenService_LoginUsesCache(t *testing.T) {
	repo := NewMockUserRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if err := svc.Register(ctx, "user-1", "alice", "s3cret", nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "s3cret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if repo.getCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.getCalls)
	}
	if _, err := svc.Login(ctx, "alice", "s3cret"); err != nil {
		t.Fatalf("Login 2 failed: %v", err)
	}
	if repo.getCalls != 1 {
		t.Errorf("expected 1 repo call (cached), got %d", repo.getCalls)
	}
}

func TestTokenService_RefreshRotatesPair(t *testing.T) {
	repo := NewMockUserRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if err := svc.Register(ctx, "user-1", "alice", "s3cret", []string{"editor"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	pair, err := svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	claims, err := svc.manager.Verify(next.AccessToken, auth.TokenTypeAccess)
	if err != nil {
		t.Fatalf("refreshed access token does not verify: %v", err)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "editor" {
		t.Errorf("refresh should carry roles forward, got %v", claims.Roles)
	}
}

func TestTokenService_RefreshRejectsAccessToken(t *testing.T) {
	repo := NewMockUserRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if err := svc.Register(ctx, "user-1", "alice", "s3cret", nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	pair, err := svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, auth.ErrAuthenticationFailed) {
		t.Errorf("access token must not be accepted for refresh, got %v", err)
	}
}
