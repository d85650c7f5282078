package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/shophive/cart-service/internal/domain"
	"github.com/shophive/cart-service/internal/session"
)

// ErrInvalidCredentials covers both an unknown login and a wrong
// password; callers never learn which.
var ErrInvalidCredentials = errors.New("invalid username or password")

type Service struct {
	users    UserRepository
	sessions session.Store
}

func NewService(users UserRepository, sessions session.Store) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
	}
}

// Register creates an account, logs it in, and returns the account with
// its fresh auth token. The caller is responsible for triggering the
// cart merge for buyer accounts before responding.
func (s *Service) Register(
	ctx context.Context,
	username, email, password string,
	kind domain.AccountKind,
) (*domain.Account, string, error) {
	if !kind.Valid() {
		kind = domain.KindBuyer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	account, err := s.users.Create(ctx, username, email, string(hash), kind)
	if err != nil {
		return nil, "", err
	}

	token, err := s.sessions.CreateAuth(ctx, account.ID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Login verifies credentials against either the username or the email
// and mints an auth session token.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*domain.Account, string, error) {
	account, hash, err := s.users.FindByLogin(ctx, usernameOrEmail)
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.sessions.CreateAuth(ctx, account.ID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Logout ends the auth session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteAuth(ctx, token)
}

// Account resolves a user id to its account.
func (s *Service) Account(ctx context.Context, id int64) (*domain.Account, error) {
	return s.users.GetByID(ctx, id)
}
