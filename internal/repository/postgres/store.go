package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/realmhub/internal/repository"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx. Every store
// takes one, so the same code runs inside or outside a transaction.
//
// Why not pass a pgx.Tx into each repository method instead? Because then
// every method signature carries the transaction, and services that never
// need one would still have to thread it through. With DBTX the decision
// lives in one place: Repositories() binds stores to the pool, WithinTx binds
// a fresh set to the transaction. A service asks for atomicity by running
// its writes through WithinTx and otherwise does not know transactions exist.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ DBTX = (*pgxpool.Pool)(nil)
	_ DBTX = (pgx.Tx)(nil)

	_ repository.Transactor = (*Store)(nil)
)

// Store vends pool-bound repositories and runs transactions.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Repositories returns stores that each run on their own pooled connection.
func (s *Store) Repositories() repository.Repositories {
	return repositoriesFor(s.pool)
}

// WithinTx begins a transaction, hands fn stores bound to it, and commits
// if fn returns nil. Any error, including a panic, rolls back.
//
// fn must only use the repositories it is given. A store obtained from
// Repositories() runs on a different pooled connection and would neither see
// the uncommitted rows nor roll back with them.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, repositoriesFor(tx))
	})
}

func repositoriesFor(db DBTX) repository.Repositories {
	return repository.Repositories{
		Accounts:    NewAccountStore(db),
		Realms:      NewRealmStore(db),
		Roles:       NewRoleStore(db),
		Permissions: NewPermissionStore(db),
		Grants:      NewGrantStore(db),
		Bridges:     NewBridgeStore(db),
		Bots:        NewBotStore(db),
	}
}

// SQLSTATE codes from https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrCheckViolation      = "23514"
)

// wrapErr annotates err with op and, for constraint failures, the matching
// repository sentinel plus the constraint name.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%s: %w (%s)", op, repository.ErrUniqueViolation, pgErr.ConstraintName)
		case pgErrForeignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", op, repository.ErrForeignKeyViolation, pgErr.ConstraintName)
		case pgErrCheckViolation:
			return fmt.Errorf("%s: %w (%s)", op, repository.ErrCheckViolation, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
