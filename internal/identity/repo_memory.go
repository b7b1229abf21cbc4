package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{accounts: make(map[string]Account)}
}

func (r *MemoryRepo) Create(ctx context.Context, acct Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if strings.EqualFold(existing.Email, acct.Email) {
			return ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	r.accounts[acct.ID] = acct
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acct := range r.accounts {
		if strings.EqualFold(acct.Email, email) {
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *MemoryRepo) MarkVerified(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acct.EmailVerified = true
	acct.UpdatedAt = time.Now().UTC()
	r.accounts[id] = acct
	return nil
}

func (r *MemoryRepo) UpsertGoogle(ctx context.Context, acct Account) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, existing := range r.accounts {
		if existing.GoogleSub == acct.GoogleSub && !strings.EqualFold(existing.Email, acct.Email) {
			return Account{}, ErrGoogleLinked
		}
	}
	for id, existing := range r.accounts {
		if strings.EqualFold(existing.Email, acct.Email) {
			if !existing.EmailVerified {
				existing.PasswordHash = ""
				existing.Provider = ProviderGoogle
			}
			existing.GoogleSub = acct.GoogleSub
			existing.EmailVerified = true
			existing.UpdatedAt = now
			r.accounts[id] = existing
			return existing, nil
		}
	}
	acct.EmailVerified = true
	acct.CreatedAt = now
	acct.UpdatedAt = now
	r.accounts[acct.ID] = acct
	return acct, nil
}
