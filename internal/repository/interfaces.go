package repository

import (
	"context"
	"errors"

	"github.com/policyfence/policyfence/internal/db"
)

var ErrNotFound = errors.New("not found")

type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*db.User, error)
	CreateUser(ctx context.Context, user *db.User) error
}
