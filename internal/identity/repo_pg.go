package identity

import (
	"context"
	"database/sql"
	"errors"

	"securelink-backend/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const accountColumns = `id, email, username, phone, password_hash, google_sub, email_verified, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, acct Account) error {
	const query = `
INSERT INTO accounts (id, email, username, phone, password_hash, google_sub, email_verified, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`
	_, err := r.DB.ExecContext(ctx, query,
		acct.ID,
		acct.Email,
		acct.Username,
		acct.Phone,
		acct.PasswordHash,
		nullableString(acct.GoogleSub),
		acct.EmailVerified,
	)
	if db.IsUniqueViolation(err, "accounts_email_key") {
		return ErrEmailTaken
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 LIMIT 1`
	return scanAccount(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1) LIMIT 1`
	return scanAccount(r.DB.QueryRowContext(ctx, query, email))
}

func (r *PGRepo) MarkVerified(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE accounts SET email_verified = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) UpsertGoogle(ctx context.Context, acct Account) (Account, error) {
	// An existing account with the same email is linked rather than duplicated.
	// An unverified one loses its password.
	const query = `
INSERT INTO accounts (id, email, username, phone, password_hash, google_sub, email_verified, created_at, updated_at)
VALUES ($1, $2, $3, '', '', $4, TRUE, now(), now())
ON CONFLICT ((lower(email))) DO UPDATE SET
  password_hash = CASE WHEN accounts.email_verified THEN accounts.password_hash ELSE '' END,
  google_sub = EXCLUDED.google_sub,
  email_verified = TRUE,
  updated_at = now()
RETURNING ` + accountColumns
	linked, err := scanAccount(r.DB.QueryRowContext(ctx, query, acct.ID, acct.Email, acct.Username, acct.GoogleSub))
	if db.IsUniqueViolation(err, "accounts_google_sub_key") {
		return Account{}, ErrGoogleLinked
	}
	return linked, err
}

func scanAccount(row *sql.Row) (Account, error) {
	var acct Account
	var googleSub sql.NullString
	err := row.Scan(
		&acct.ID,
		&acct.Email,
		&acct.Username,
		&acct.Phone,
		&acct.PasswordHash,
		&googleSub,
		&acct.EmailVerified,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	if googleSub.Valid {
		acct.GoogleSub = googleSub.String
	}
	acct.Provider = ProviderPassword
	if acct.PasswordHash == "" && acct.GoogleSub != "" {
		acct.Provider = ProviderGoogle
	}
	return acct, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
