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

const VerificationTokenTTL = 24 * time.Hour

// VerificationService emite y consume tokens de verificación de email de un solo uso.
type VerificationService struct {
	accounts repository.AccountRepository
	ttl      time.Duration
	now      func() time.Time
}

func NewVerificationService(accounts repository.AccountRepository) *VerificationService {
	return &VerificationService{
		accounts: accounts,
		ttl:      VerificationTokenTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewToken genera un token sin persistirlo; lo usa el alta para guardar
// la cuenta y su token en una sola escritura.
func (s *VerificationService) NewToken() (string, repository.TokenSlot, error) {
	raw, hash, err := newOneTimeToken()
	if err != nil {
		return "", repository.TokenSlot{}, fmt.Errorf("generate verification token: %w", err)
	}
	return raw, repository.TokenSlot{Hash: hash, ExpiresAt: s.now().Add(s.ttl)}, nil
}

// Issue reemplaza cualquier token de verificación previo de la cuenta.
func (s *VerificationService) Issue(ctx context.Context, account domain.Account) (string, error) {
	raw, slot, err := s.NewToken()
	if err != nil {
		return "", err
	}
	_, err = s.accounts.UpdateIf(ctx,
		repository.Condition{ID: account.ID},
		repository.Changes{SetVerification: &slot},
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAccountNotFound
		}
		return "", fmt.Errorf("store verification token: %w", err)
	}
	return raw, nil
}

// Consume marca el email como verificado y borra el token en la misma
// escritura condicional que comprueba hash y expiración.
func (s *VerificationService) Consume(ctx context.Context, rawToken string) (domain.Account, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.Account{}, ErrTokenNotFoundOrExpired
	}
	account, err := s.accounts.UpdateIf(ctx,
		repository.Condition{
			Field:   repository.FieldVerification,
			Equals:  hashToken(rawToken),
			ValidAt: s.now(),
		},
		repository.Changes{MarkEmailVerified: true, ClearVerification: true},
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrTokenNotFoundOrExpired
		}
		return domain.Account{}, fmt.Errorf("consume verification token: %w", err)
	}
	return account, nil
}
