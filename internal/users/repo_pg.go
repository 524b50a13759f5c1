package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, username, email, password_hash, first_name, last_name, role, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, username, email, password_hash, first_name, last_name, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	switch {
	case db.IsUniqueViolation(err, "users_username_key"):
		return ErrUsernameTaken
	case db.IsUniqueViolation(err, "users_email_key"):
		return ErrEmailTaken
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	query := `SELECT ` + userColumns + `
FROM users
WHERE id = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, userID))
}

func (r *PGRepo) GetByLogin(ctx context.Context, usernameOrEmail string) (User, error) {
	query := `SELECT ` + userColumns + `
FROM users
WHERE username = $1 OR lower(email) = lower($1)
ORDER BY (username = $1) DESC
LIMIT 1`
	return scanUser(r.DB.QueryRowContext(ctx, query, usernameOrEmail))
}

func scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

var _ Repo = (*PGRepo)(nil)
