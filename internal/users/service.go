package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID, username, email, role string) (string, error)
}

// SignUpInput is the registration form.
type SignUpInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Session is the result of a successful sign-in.
type Session struct {
	Token string
	User  User
}

type Service struct {
	Repo   Repo
	Tokens TokenIssuer
	Now    func() time.Time

	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(repo Repo, tokens TokenIssuer) *Service {
	return &Service{Repo: repo, Tokens: tokens}
}

// SignUp registers a new account with a bcrypt password hash.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateSignUp(in); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         DefaultRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	telemetry.Info("user.registered", map[string]any{"user_id": user.ID, "username": user.Username})
	return user, nil
}

// SignIn verifies credentials and issues an access token.
func (s *Service) SignIn(ctx context.Context, usernameOrEmail, password string) (Session, error) {
	login := strings.TrimSpace(usernameOrEmail)
	if login == "" || password == "" {
		return Session{}, fmt.Errorf("%w: username or email and password are required", ErrInvalidInput)
	}
	user, err := s.Repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Spend the same time as a real comparison.
			_ = bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(password))
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		telemetry.Info("user.signin_rejected", map[string]any{"user_id": user.ID})
		return Session{}, ErrInvalidCredentials
	}
	token, err := s.Tokens.Issue(user.ID, user.Username, user.Email, user.Role)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, User: user}, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

func validateSignUp(in SignUpInput) error {
	switch n := utf8.RuneCountInString(in.Username); {
	case n < 3 || n > 20:
		return fmt.Errorf("%w: username must be between 3 and 20 characters", ErrInvalidInput)
	case strings.ContainsAny(in.Username, " \t\n@"):
		return fmt.Errorf("%w: username must not contain spaces or @", ErrInvalidInput)
	}
	if in.Email == "" || len(in.Email) > 50 {
		return fmt.Errorf("%w: email must be between 1 and 50 characters", ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(in.Password); n < 6 || n > 40 {
		return fmt.Errorf("%w: password must be between 6 and 40 characters", ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.FirstName) > 50 || utf8.RuneCountInString(in.LastName) > 50 {
		return fmt.Errorf("%w: names must be at most 50 characters", ErrInvalidInput)
	}
	return nil
}

func (s *Service) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), s.cost())
	})
	return s.dummyHash
}

func (s *Service) cost() int {
	if s.Cost > 0 {
		return s.Cost
	}
	return bcrypt.DefaultCost
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
