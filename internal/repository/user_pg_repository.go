package repository

import (
	"context"
	"fmt"

	"fsanano/shopcart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserPgRepository keeps registered users in a Postgres table instead of the
// flat file.
type UserPgRepository struct {
	db *pgxpool.Pool
}

func NewUserPgRepository(db *pgxpool.Pool) *UserPgRepository {
	return &UserPgRepository{db: db}
}

// RunAtomic executes a function within a transaction
func (r *UserPgRepository) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op once the transaction is committed.
	defer tx.Rollback(ctx)

	ctx = context.WithValue(ctx, txKey{}, tx)

	if err := fn(ctx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type txKey struct{}

func (r *UserPgRepository) getExecutor(ctx context.Context) PgxExecutor {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.db
}

// PgxExecutor is an interface that matches both *pgx.Conn/Pool and pgx.Tx
type PgxExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Migrate creates the users table. Email is indexed case-insensitively and is
// not unique.
func (r *UserPgRepository) Migrate(ctx context.Context) error {
	return r.RunAtomic(ctx, func(ctx context.Context) error {
		_, err := r.getExecutor(ctx).Exec(ctx, `
			CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				password TEXT NOT NULL,
				phone_number TEXT NOT NULL,
				age INTEGER NOT NULL CHECK (age >= 0),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
			)`)
		if err != nil {
			return fmt.Errorf("failed to create users table: %w", err)
		}

		_, err = r.getExecutor(ctx).Exec(ctx, "CREATE INDEX IF NOT EXISTS users_email_lower_idx ON users (lower(email))")
		if err != nil {
			return fmt.Errorf("failed to create users email index: %w", err)
		}
		return nil
	})
}

// LoadUsers returns every user in registration order
func (r *UserPgRepository) LoadUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, "SELECT name, email, password, phone_number, age FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.Name, &u.Email, &u.Password, &u.PhoneNumber, &u.Age); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// SaveUser inserts a new user
func (r *UserPgRepository) SaveUser(ctx context.Context, user model.User) error {
	_, err := r.getExecutor(ctx).Exec(ctx,
		"INSERT INTO users (name, email, password, phone_number, age) VALUES ($1, $2, $3, $4, $5)",
		user.Name, user.Email, user.Password, user.PhoneNumber, user.Age)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
