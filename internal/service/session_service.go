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

// SessionService administra el único refresh token activo por cuenta.
//
// Estados del slot: sin sesión, o sesión activa con el hash del refresh
// vigente. Login pasa a sesión activa desde cualquier estado; Logout solo
// vuelve a sin sesión si el token presentado coincide con el guardado.
type SessionService struct {
	accounts repository.AccountRepository
	tokens   *JWTService
}

func NewSessionService(accounts repository.AccountRepository, tokens *JWTService) *SessionService {
	return &SessionService{
		accounts: accounts,
		tokens:   tokens,
	}
}

// Login emite access y refresh y sobrescribe el slot, invalidando
// cualquier sesión anterior.
func (s *SessionService) Login(ctx context.Context, account domain.Account) (domain.TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccess(account.ID, account.Role)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(account.ID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	slot := hashToken(refresh)
	_, err = s.accounts.UpdateIf(ctx,
		repository.Condition{ID: account.ID},
		repository.Changes{RefreshTokenHash: &slot},
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TokenPair{}, ErrAccountNotFound
		}
		return domain.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh emite un nuevo access token. El refresh debe ser válido
// criptográficamente y además ser exactamente el guardado en el slot.
// El refresh token no rota.
func (s *SessionService) Refresh(ctx context.Context, rawRefresh string) (string, time.Time, error) {
	rawRefresh = strings.TrimSpace(rawRefresh)
	claims, err := s.tokens.VerifyRefresh(rawRefresh)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return "", time.Time{}, ErrTokenExpired
		}
		return "", time.Time{}, ErrTokenInvalid
	}

	account, err := s.accounts.GetByRefreshHash(ctx, hashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, ErrTokenInvalid
		}
		return "", time.Time{}, fmt.Errorf("lookup refresh token: %w", err)
	}
	if account.ID != claims.Subject {
		return "", time.Time{}, ErrTokenInvalid
	}

	access, exp, err := s.tokens.IssueAccess(account.ID, account.Role)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue access token: %w", err)
	}
	return access, exp, nil
}

// Logout vacía el slot que coincide con el token. Es idempotente: un
// token desconocido no es un error.
func (s *SessionService) Logout(ctx context.Context, rawRefresh string) error {
	rawRefresh = strings.TrimSpace(rawRefresh)
	if rawRefresh == "" {
		return nil
	}
	_, err := s.accounts.UpdateIf(ctx,
		repository.Condition{Field: repository.FieldRefresh, Equals: hashToken(rawRefresh)},
		repository.Changes{ClearRefreshToken: true},
	)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// Revoke cierra la sesión de una cuenta sin necesitar su refresh token.
func (s *SessionService) Revoke(ctx context.Context, accountID string) error {
	_, err := s.accounts.UpdateIf(ctx,
		repository.Condition{ID: accountID},
		repository.Changes{ClearRefreshToken: true},
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
