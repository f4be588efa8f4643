package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"booking-api/internal/domain"
	"booking-api/internal/repository"
	"booking-api/internal/service"
)

type capturedMail struct {
	to       string
	template string
	payload  any
}

type captureMailer struct {
	mu   sync.Mutex
	sent []capturedMail
}

func (m *captureMailer) Send(_ context.Context, to, templateName string, payload any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, capturedMail{to: to, template: templateName, payload: payload})
	return true
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected a mail")
	}
	raw, ok := m.sent[len(m.sent)-1].payload.(string)
	if !ok {
		t.Fatalf("expected token payload")
	}
	return raw
}

type testServer struct {
	router      *gin.Engine
	repo        *repository.MemoryAccountRepository
	credentials *service.CredentialStore
	tokens      *service.JWTService
	mailer      *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryAccountRepository()
	credentials := service.NewCredentialStore(bcrypt.MinCost)
	tokens, err := service.NewJWTService(service.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}
	sessions := service.NewSessionService(repo, tokens)
	mailer := &captureMailer{}
	accounts := service.NewAccountService(service.AccountDeps{
		Logger:       zap.NewNop(),
		Accounts:     repo,
		Credentials:  credentials,
		Verification: service.NewVerificationService(repo),
		Resets:       service.NewPasswordResetService(repo, credentials),
		Sessions:     sessions,
		Mailer:       mailer,
		Limiter:      service.NewRateLimiter(time.Minute, 2),
		PhoneRegion:  "US",
	})
	gate := service.NewAuthGate(tokens)
	handler := NewAccountHandler(zap.NewNop(), accounts, sessions)

	return &testServer{
		router:      NewRouter(zap.NewNop(), gate, handler),
		repo:        repo,
		credentials: credentials,
		tokens:      tokens,
		mailer:      mailer,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, id, emailAddr, mobile string, role domain.Role) domain.Account {
	t.Helper()
	hash, err := s.credentials.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	account := domain.Account{
		ID:            id,
		Name:          "Seed",
		Email:         emailAddr,
		Mobile:        mobile,
		Role:          role,
		PasswordHash:  hash,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(context.Background(), account); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return account
}

func (s *testServer) accessToken(t *testing.T, id string, role domain.Role) string {
	t.Helper()
	token, _, err := s.tokens.IssueAccess(id, role)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

