package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"booking-api/internal/domain"
)

func TestVerificationService_IssueConsume(t *testing.T) {
	stack := newTestStack(t, nil)
	ctx := context.Background()
	account := stack.seedVerified(t, "a1", "a@example.com", "secret1", domain.RoleUser)

	raw, err := stack.verification.Issue(ctx, account)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	stored, _ := stack.repo.GetByID(ctx, "a1")
	if stored.EmailVerificationTokenHash == raw || stored.EmailVerificationTokenHash != hashToken(raw) {
		t.Fatalf("expected only the hash to be stored")
	}

	verified, err := stack.verification.Consume(ctx, raw)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !verified.EmailVerified || verified.EmailVerificationTokenHash != "" || verified.EmailVerificationExpiresAt != nil {
		t.Fatalf("expected verified account with cleared token: %+v", verified)
	}

	if _, err := stack.verification.Consume(ctx, raw); !errors.Is(err, ErrTokenNotFoundOrExpired) {
		t.Fatalf("expected second consume to fail, got %v", err)
	}
}

func TestVerificationService_Expired(t *testing.T) {
	stack := newTestStack(t, nil)
	ctx := context.Background()
	account := stack.seedVerified(t, "a1", "a@example.com", "secret1", domain.RoleUser)

	issuedAt := time.Now().UTC()
	stack.verification.now = func() time.Time { return issuedAt }
	raw, err := stack.verification.Issue(ctx, account)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	stack.verification.now = func() time.Time { return issuedAt.Add(VerificationTokenTTL + time.Second) }
	if _, err := stack.verification.Consume(ctx, raw); !errors.Is(err, ErrTokenNotFoundOrExpired) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestVerificationService_ReissueReplacesPrevious(t *testing.T) {
	stack := newTestStack(t, nil)
	ctx := context.Background()
	account := stack.seedVerified(t, "a1", "a@example.com", "secret1", domain.RoleUser)

	first, err := stack.verification.Issue(ctx, account)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := stack.verification.Issue(ctx, account)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first == second {
		t.Fatalf("expected fresh token")
	}
	if _, err := stack.verification.Consume(ctx, first); !errors.Is(err, ErrTokenNotFoundOrExpired) {
		t.Fatalf("expected replaced token rejected, got %v", err)
	}
	if _, err := stack.verification.Consume(ctx, second); err != nil {
		t.Fatalf("consume latest: %v", err)
	}
}

func TestVerificationService_UnknownToken(t *testing.T) {
	stack := newTestStack(t, nil)
	ctx := context.Background()

	for _, raw := range []string{"", "deadbeef"} {
		if _, err := stack.verification.Consume(ctx, raw); !errors.Is(err, ErrTokenNotFoundOrExpired) {
			t.Fatalf("expected ErrTokenNotFoundOrExpired for %q, got %v", raw, err)
		}
	}
	if _, err := stack.verification.Issue(ctx, domain.Account{ID: "missing"}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
