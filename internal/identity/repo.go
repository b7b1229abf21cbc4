package identity

import "context"

// Repo persists accounts.
type Repo interface {
	// Create inserts a new account, returning ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, acct Account) error
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	MarkVerified(ctx context.Context, id string) error
	// UpsertGoogle links a Google subject to an account, creating it if needed.
	UpsertGoogle(ctx context.Context, acct Account) (Account, error)
}
