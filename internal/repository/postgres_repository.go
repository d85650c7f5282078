package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/shophive/cart-service/internal/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Open connects to Postgres and verifies the connection. The returned
// handle is shared with the catalog and auth packages.
func Open(cred *Credentials) (*sql.DB, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return db, nil
}

func RunMigrations(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "cart_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) CartRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetLines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	query := `
		SELECT product_id, quantity, created_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at, product_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: query cart lines: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.AddedAt); err != nil {
			return nil, fmt.Errorf("%w: scan cart line: %v", domain.ErrStorageUnavailable, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration: %v", domain.ErrStorageUnavailable, err)
	}

	return lines, nil
}

// upsertLine is the single-statement increment that closes the
// read-modify-write race between concurrent adds for the same pair.
const upsertLine = `
	INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
	VALUES ($1, $2, $3, NOW(), NOW())
	ON CONFLICT (user_id, product_id)
	DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
`

func (r *postgresRepository) AddLine(ctx context.Context, userID, productID int64, delta int) error {
	if delta < 1 {
		return domain.ErrInvalidQuantity
	}

	if _, err := r.db.ExecContext(ctx, upsertLine, userID, productID, delta); err != nil {
		return fmt.Errorf("%w: upsert cart line: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *postgresRepository) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		_, err := r.RemoveLine(ctx, userID, productID)
		return err
	}

	query := `
		UPDATE cart_items
		SET quantity = $3, updated_at = NOW()
		WHERE user_id = $1 AND product_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, userID, productID, quantity); err != nil {
		return fmt.Errorf("%w: update quantity: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *postgresRepository) RemoveLine(ctx context.Context, userID, productID int64) (bool, error) {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, productID)
	if err != nil {
		return false, fmt.Errorf("%w: delete cart line: %v", domain.ErrStorageUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %v", domain.ErrStorageUnavailable, err)
	}
	return affected > 0, nil
}

func (r *postgresRepository) DeleteCart(ctx context.Context, userID int64) error {
	query := `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("%w: delete cart: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *postgresRepository) MergeLines(ctx context.Context, userID int64, lines []domain.CartLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin merge: %v", domain.ErrStorageUnavailable, err)
	}

	for _, line := range lines {
		if line.Quantity < 1 {
			continue
		}
		if _, err := tx.ExecContext(ctx, upsertLine, userID, line.ProductID, line.Quantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("%w: merge line %d: %v (rollback: %v)",
					domain.ErrStorageUnavailable, line.ProductID, err, rbErr)
			}
			return fmt.Errorf("%w: merge line %d: %v", domain.ErrStorageUnavailable, line.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit merge: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}
