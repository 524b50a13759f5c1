package users

import (
	"context"
	"errors"
)

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "user not found" }

var (
	ErrUsernameTaken = errors.New("Error: Username is already taken!")
	ErrEmailTaken    = errors.New("Error: Email is already in use!")
)

type Repo interface {
	// Create fails with ErrUsernameTaken or ErrEmailTaken on duplicates.
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	// GetByLogin matches the username exactly or the email case-insensitively.
	GetByLogin(ctx context.Context, usernameOrEmail string) (User, error)
}
