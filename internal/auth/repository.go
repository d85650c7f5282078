package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/shophive/cart-service/internal/domain"
)

var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
	ErrUserNotFound  = errors.New("user not found")
)

// UserRepository defines the account lookups the auth service needs.
type UserRepository interface {
	Create(ctx context.Context, username, email, passwordHash string, kind domain.AccountKind) (*domain.Account, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (*domain.Account, string, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(
	ctx context.Context,
	username, email, passwordHash string,
	kind domain.AccountKind,
) (*domain.Account, error) {
	query := `
		INSERT INTO users (username, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, username, email, passwordHash, string(kind)).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "users_email_key":
				return nil, ErrEmailTaken
			default:
				return nil, ErrUsernameTaken
			}
		}
		return nil, fmt.Errorf("%w: insert user: %v", domain.ErrStorageUnavailable, err)
	}

	return &domain.Account{ID: id, Username: username, Email: email, Kind: kind}, nil
}

// FindByLogin looks the account up by username first, then by email,
// and returns it with its password hash.
func (r *postgresUserRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (*domain.Account, string, error) {
	query := `
		SELECT id, username, email, password_hash, role
		FROM users
		WHERE username = $1 OR email = $1
		ORDER BY (username = $1) DESC
		LIMIT 1
	`

	var (
		account domain.Account
		hash    string
		role    string
	)
	err := r.db.QueryRowContext(ctx, query, usernameOrEmail).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&hash,
		&role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: query user: %v", domain.ErrStorageUnavailable, err)
	}

	account.Kind = domain.AccountKind(role)
	return &account, hash, nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
		SELECT id, username, email, role
		FROM users
		WHERE id = $1
	`

	var (
		account domain.Account
		role    string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query user: %v", domain.ErrStorageUnavailable, err)
	}

	account.Kind = domain.AccountKind(role)
	return &account, nil
}
