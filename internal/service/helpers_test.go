package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"booking-api/internal/domain"
	"booking-api/internal/repository"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

type sentMail struct {
	to       string
	template string
	payload  any
}

type mockMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *mockMailer) Send(_ context.Context, to, templateName string, payload any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, template: templateName, payload: payload})
	return !m.fail
}

func (m *mockMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected a mail to be sent")
	}
	return m.sent[len(m.sent)-1]
}

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "booking-api-test",
	})
	if err != nil {
		t.Fatalf("new jwt service: %v", err)
	}
	return svc
}

type testStack struct {
	repo         *repository.MemoryAccountRepository
	credentials  *CredentialStore
	tokens       *JWTService
	verification *VerificationService
	resets       *PasswordResetService
	sessions     *SessionService
	mailer       *mockMailer
	accounts     *AccountService
}

func newTestStack(t *testing.T, limiter RateLimiter) *testStack {
	t.Helper()
	repo := repository.NewMemoryAccountRepository()
	credentials := NewCredentialStore(bcrypt.MinCost)
	tokens := newTestJWTService(t)
	verification := NewVerificationService(repo)
	resets := NewPasswordResetService(repo, credentials)
	sessions := NewSessionService(repo, tokens)
	mailer := &mockMailer{}
	if limiter == nil {
		limiter = allowAll{}
	}
	accounts := NewAccountService(AccountDeps{
		Logger:       zap.NewNop(),
		Accounts:     repo,
		Credentials:  credentials,
		Verification: verification,
		Resets:       resets,
		Sessions:     sessions,
		Mailer:       mailer,
		Limiter:      limiter,
		PhoneRegion:  "US",
	})
	return &testStack{
		repo:         repo,
		credentials:  credentials,
		tokens:       tokens,
		verification: verification,
		resets:       resets,
		sessions:     sessions,
		mailer:       mailer,
		accounts:     accounts,
	}
}

// seedVerified guarda una cuenta verificada con la contraseña dada.
func (s *testStack) seedVerified(t *testing.T, id, emailAddr, password string, role domain.Role) domain.Account {
	t.Helper()
	hash, err := s.credentials.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	account := domain.Account{
		ID:            id,
		Name:          "Seed " + id,
		Email:         emailAddr,
		Mobile:        "+1650253" + id,
		Role:          role,
		PasswordHash:  hash,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}
