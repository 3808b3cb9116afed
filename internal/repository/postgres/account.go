package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/realmhub/internal/models"
)

type AccountStore struct {
	db DBTX
}

func NewAccountStore(db DBTX) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `id, username, email, password_hash, email_verified, is_active, created_at, updated_at, last_login_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.EmailVerified,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new account row. Timestamps come from the database.
func (s *AccountStore) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, username, email, password_hash, email_verified, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING ` + accountColumns

	created, err := scanAccount(s.db.QueryRow(ctx, query,
		a.ID, a.Username, a.Email, a.PasswordHash, a.EmailVerified, a.IsActive,
	))
	if err != nil {
		return nil, wrapErr("insert account", err)
	}
	return created, nil
}

func (s *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	a, err := scanAccount(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

func (s *AccountStore) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM accounts
			WHERE email = $1 OR username = $2
		)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, email, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}
	return exists, nil
}

func (s *AccountStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET last_login_at = now(), updated_at = now()
		WHERE id = $1`

	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}
