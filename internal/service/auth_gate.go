package service

import (
	"errors"
	"strings"

	"booking-api/internal/domain"
)

// AccessVerifier valida access tokens.
type AccessVerifier interface {
	VerifyAccess(token string) (Claims, error)
}

// AuthGate decodifica la credencial bearer y aplica reglas de rol y propiedad.
type AuthGate struct {
	verifier AccessVerifier
}

func NewAuthGate(verifier AccessVerifier) *AuthGate {
	return &AuthGate{verifier: verifier}
}

// RequireAuthenticated recibe el valor completo del header Authorization.
func (g *AuthGate) RequireAuthenticated(bearer string) (Claims, error) {
	header := strings.TrimSpace(bearer)
	if header == "" {
		return Claims{}, ErrNoToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return Claims{}, ErrNoToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrNoToken
	}

	claims, err := g.verifier.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (g *AuthGate) RequireRole(claims Claims, allowed ...domain.Role) error {
	for _, r := range allowed {
		if claims.Role == r {
			return nil
		}
	}
	return ErrAccessDenied
}

func (g *AuthGate) RequireOwnerOrAdmin(claims Claims, ownerID string) error {
	if claims.Role == domain.RoleAdmin {
		return nil
	}
	if ownerID != "" && claims.Subject == ownerID {
		return nil
	}
	return ErrAccessDenied
}
