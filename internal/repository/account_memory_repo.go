package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"booking-api/internal/domain"
)

// MemoryAccountRepository guarda cuentas en memoria. Cada operación corre
// bajo un único lock, así UpdateIf es atómico igual que en Postgres.
type MemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	now      func() time.Time
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[string]domain.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; ok {
		return &DuplicateError{Field: "id"}
	}
	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return &DuplicateError{Field: "email"}
		}
		if existing.Mobile == account.Mobile {
			return &DuplicateError{Field: "mobile"}
		}
	}
	r.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (r *MemoryAccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return r.find(ctx, func(a domain.Account) bool { return a.ID == id })
}

func (r *MemoryAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.find(ctx, func(a domain.Account) bool { return a.Email == email })
}

func (r *MemoryAccountRepository) GetByMobile(ctx context.Context, mobile string) (domain.Account, error) {
	return r.find(ctx, func(a domain.Account) bool { return a.Mobile == mobile })
}

func (r *MemoryAccountRepository) GetByVerificationHash(ctx context.Context, hash string) (domain.Account, error) {
	return r.find(ctx, func(a domain.Account) bool {
		return hash != "" && a.EmailVerificationTokenHash == hash
	})
}

func (r *MemoryAccountRepository) GetByResetHash(ctx context.Context, hash string) (domain.Account, error) {
	return r.find(ctx, func(a domain.Account) bool {
		return hash != "" && a.PasswordResetTokenHash == hash
	})
}

func (r *MemoryAccountRepository) GetByRefreshHash(ctx context.Context, hash string) (domain.Account, error) {
	return r.find(ctx, func(a domain.Account) bool {
		return hash != "" && a.RefreshTokenHash == hash
	})
}

func (r *MemoryAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, cloneAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryAccountRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.accounts, id)
	return nil
}

func (r *MemoryAccountRepository) UpdateIf(ctx context.Context, cond Condition, changes Changes) (domain.Account, error) {
	if err := cond.validate(); err != nil {
		return domain.Account{}, err
	}
	if changes.empty() {
		return domain.Account{}, ErrNoChanges
	}
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		target domain.Account
		found  bool
	)
	for _, a := range r.accounts {
		if matches(a, cond) {
			target, found = a, true
			break
		}
	}
	if !found {
		return domain.Account{}, pgx.ErrNoRows
	}

	if changes.Mobile != nil {
		for _, other := range r.accounts {
			if other.ID != target.ID && other.Mobile == *changes.Mobile {
				return domain.Account{}, &DuplicateError{Field: "mobile"}
			}
		}
	}

	apply(&target, changes, r.now())
	r.accounts[target.ID] = target
	return cloneAccount(target), nil
}

func (r *MemoryAccountRepository) find(ctx context.Context, pred func(domain.Account) bool) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if pred(a) {
			return cloneAccount(a), nil
		}
	}
	return domain.Account{}, pgx.ErrNoRows
}

func matches(a domain.Account, cond Condition) bool {
	if cond.ID != "" && a.ID != cond.ID {
		return false
	}
	var (
		hash    string
		expires *time.Time
	)
	switch cond.Field {
	case FieldNone:
		return true
	case FieldVerification:
		hash, expires = a.EmailVerificationTokenHash, a.EmailVerificationExpiresAt
	case FieldReset:
		hash, expires = a.PasswordResetTokenHash, a.PasswordResetExpiresAt
	case FieldRefresh:
		hash = a.RefreshTokenHash
	}
	if hash == "" || hash != cond.Equals {
		return false
	}
	if !cond.ValidAt.IsZero() && cond.Field != FieldRefresh {
		if expires == nil || !expires.After(cond.ValidAt) {
			return false
		}
	}
	return true
}

func apply(a *domain.Account, c Changes, now time.Time) {
	if c.Name != nil {
		a.Name = *c.Name
	}
	if c.Mobile != nil {
		a.Mobile = *c.Mobile
	}
	if c.Address != nil {
		a.Address = *c.Address
	}
	if c.Role != nil {
		a.Role = *c.Role
	}
	if c.PasswordHash != nil {
		a.PasswordHash = *c.PasswordHash
	}
	if c.MarkEmailVerified {
		a.EmailVerified = true
	}
	switch {
	case c.SetVerification != nil:
		exp := c.SetVerification.ExpiresAt
		a.EmailVerificationTokenHash = c.SetVerification.Hash
		a.EmailVerificationExpiresAt = &exp
	case c.ClearVerification:
		a.EmailVerificationTokenHash = ""
		a.EmailVerificationExpiresAt = nil
	}
	switch {
	case c.SetReset != nil:
		exp := c.SetReset.ExpiresAt
		a.PasswordResetTokenHash = c.SetReset.Hash
		a.PasswordResetExpiresAt = &exp
	case c.ClearReset:
		a.PasswordResetTokenHash = ""
		a.PasswordResetExpiresAt = nil
	}
	switch {
	case c.RefreshTokenHash != nil:
		a.RefreshTokenHash = *c.RefreshTokenHash
	case c.ClearRefreshToken:
		a.RefreshTokenHash = ""
	}
	a.UpdatedAt = now
}

func cloneAccount(a domain.Account) domain.Account {
	if a.EmailVerificationExpiresAt != nil {
		t := *a.EmailVerificationExpiresAt
		a.EmailVerificationExpiresAt = &t
	}
	if a.PasswordResetExpiresAt != nil {
		t := *a.PasswordResetExpiresAt
		a.PasswordResetExpiresAt = &t
	}
	return a
}
