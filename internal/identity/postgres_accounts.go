package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

type account struct {
	UID              string
	Email            string
	PasswordHash     string
	Disabled         bool
	TokensValidAfter time.Time
	CreatedAt        time.Time
}

// accountRepository is the persistence the Service needs.
type accountRepository interface {
	Insert(ctx context.Context, a account) error
	Delete(ctx context.Context, uid string) error
	ByEmail(ctx context.Context, email string) (account, error)
	ByUID(ctx context.Context, uid string) (account, error)
	SetTokensValidAfter(ctx context.Context, uid string, t time.Time) error
}

// PostgresAccounts stores identity accounts in the identity_accounts table.
type PostgresAccounts struct {
	db *sql.DB
}

func NewPostgresAccounts(db *sql.DB) *PostgresAccounts {
	return &PostgresAccounts{db: db}
}

func (p *PostgresAccounts) Insert(ctx context.Context, a account) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO identity_accounts (uid, email, password_hash, disabled, tokens_valid_after, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, a.UID, a.Email, a.PasswordHash, a.Disabled, a.TokensValidAfter, a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

func (p *PostgresAccounts) Delete(ctx context.Context, uid string) error {
	if _, err := uuid.Parse(uid); err != nil {
		return ErrUserNotFound
	}
	res, err := p.db.ExecContext(ctx, `DELETE FROM identity_accounts WHERE uid = $1`, uid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *PostgresAccounts) ByEmail(ctx context.Context, email string) (account, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, `
		SELECT uid, email, password_hash, disabled, tokens_valid_after, created_at
		FROM identity_accounts WHERE email = $1
	`, email))
}

func (p *PostgresAccounts) ByUID(ctx context.Context, uid string) (account, error) {
	if _, err := uuid.Parse(uid); err != nil {
		return account{}, ErrUserNotFound
	}
	return p.scanOne(p.db.QueryRowContext(ctx, `
		SELECT uid, email, password_hash, disabled, tokens_valid_after, created_at
		FROM identity_accounts WHERE uid = $1
	`, uid))
}

func (p *PostgresAccounts) SetTokensValidAfter(ctx context.Context, uid string, t time.Time) error {
	if _, err := uuid.Parse(uid); err != nil {
		return ErrUserNotFound
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE identity_accounts SET tokens_valid_after = $2, updated_at = NOW() WHERE uid = $1
	`, uid, t)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *PostgresAccounts) scanOne(row *sql.Row) (account, error) {
	var a account
	err := row.Scan(&a.UID, &a.Email, &a.PasswordHash, &a.Disabled, &a.TokensValidAfter, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return account{}, ErrUserNotFound
	}
	return a, err
}
