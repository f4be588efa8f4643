package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"booking-api/internal/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// JWTService emite y valida tokens JWT. Access y refresh se firman con
// claves distintas: una no sirve para verificar la otra.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type Claims struct {
	Role      domain.Role `json:"role,omitempty"`
	TokenType string      `json:"typ"`
	jwt.RegisteredClaims
}

// AccountID devuelve el subject del token.
func (c Claims) AccountID() string {
	return c.Subject
}

var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrJWTMisconfig   = errors.New("jwt misconfigured")
	ErrInvalidClaims  = errors.New("invalid token claims")
)

func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrJWTMisconfig
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrJWTMisconfig
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "booking-api"
	}
	return &JWTService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueAccess firma {sub, role} con la clave de access.
func (s *JWTService) IssueAccess(accountID string, role domain.Role) (string, time.Time, error) {
	if strings.TrimSpace(accountID) == "" || !role.Valid() {
		return "", time.Time{}, ErrInvalidClaims
	}
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		Role:      role,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh firma {sub, jti} con la clave de refresh. El jti evita que
// dos logins en el mismo segundo produzcan el mismo token.
func (s *JWTService) IssueRefresh(accountID string) (string, time.Time, error) {
	if strings.TrimSpace(accountID) == "" {
		return "", time.Time{}, ErrInvalidClaims
	}
	now := s.now()
	exp := now.Add(s.refreshTTL)
	claims := Claims{
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *JWTService) VerifyAccess(token string) (Claims, error) {
	claims, err := s.parseToken(token, s.accessSecret, tokenTypeAccess)
	if err != nil {
		return Claims{}, err
	}
	if !claims.Role.Valid() {
		return Claims{}, ErrTokenSignature
	}
	return claims, nil
}

func (s *JWTService) VerifyRefresh(token string) (Claims, error) {
	return s.parseToken(token, s.refreshSecret, tokenTypeRefresh)
}

func (s *JWTService) parseToken(tokenString string, key []byte, tokenType string) (Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrTokenMalformed
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		default:
			return Claims{}, ErrTokenSignature
		}
	}
	if claims.TokenType != tokenType || strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrTokenSignature
	}
	return claims, nil
}
