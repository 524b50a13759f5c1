package users

import "time"

// DefaultRole is assigned at signup.
const DefaultRole = "USER"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
