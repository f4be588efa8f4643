package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"booking-api/internal/domain"
	"booking-api/internal/repository"
)

const PasswordResetTokenTTL = time.Hour

// PasswordResetService emite y consume tokens de restablecimiento de un solo uso.
type PasswordResetService struct {
	accounts    repository.AccountRepository
	credentials *CredentialStore
	ttl         time.Duration
	now         func() time.Time
}

func NewPasswordResetService(accounts repository.AccountRepository, credentials *CredentialStore) *PasswordResetService {
	return &PasswordResetService{
		accounts:    accounts,
		credentials: credentials,
		ttl:         PasswordResetTokenTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *PasswordResetService) Issue(ctx context.Context, account domain.Account) (string, error) {
	raw, hash, err := newOneTimeToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	_, err = s.accounts.UpdateIf(ctx,
		repository.Condition{ID: account.ID},
		repository.Changes{SetReset: &repository.TokenSlot{Hash: hash, ExpiresAt: s.now().Add(s.ttl)}},
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAccountNotFound
		}
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return raw, nil
}

// Consume reemplaza la contraseña, borra el token y cierra la sesión
// activa en una única escritura condicional.
func (s *PasswordResetService) Consume(ctx context.Context, rawToken, newPassword string) (domain.Account, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.Account{}, ErrTokenNotFoundOrExpired
	}
	if err := validatePassword("password", newPassword); err != nil {
		return domain.Account{}, err
	}

	hash := hashToken(rawToken)
	now := s.now()

	// La lectura previa descarta tokens inválidos antes de bcrypt; la escritura
	// de abajo vuelve a comprobar la condición.
	current, err := s.accounts.GetByResetHash(ctx, hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrTokenNotFoundOrExpired
		}
		return domain.Account{}, fmt.Errorf("lookup reset token: %w", err)
	}
	if current.PasswordResetExpiresAt == nil || !current.PasswordResetExpiresAt.After(now) {
		return domain.Account{}, ErrTokenNotFoundOrExpired
	}

	passwordHash, err := s.credentials.Hash(newPassword)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.accounts.UpdateIf(ctx,
		repository.Condition{Field: repository.FieldReset, Equals: hash, ValidAt: now},
		repository.Changes{
			PasswordHash:      &passwordHash,
			ClearReset:        true,
			ClearRefreshToken: true,
		},
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrTokenNotFoundOrExpired
		}
		return domain.Account{}, fmt.Errorf("consume reset token: %w", err)
	}
	return account, nil
}
