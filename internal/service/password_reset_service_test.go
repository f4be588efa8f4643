package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"booking-api/internal/domain"
)

func TestPasswordResetService_ConsumeRotatesPassword(t *testing.T) {
	stack := newTestStack(t, nil)
	ctx := context.Background()
	account := stack.seedVerified(t, "a1", "a@example.com", "oldpass", domain.RoleUser)

	pair, err := stack.sessions.Login(ctx, account)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	raw, err := stack.resets.Issue(ctx, account)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	updated, err := stack.resets.Consume(ctx, raw, "newpass")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !stack.credentials.Verify("newpass", updated.PasswordHash) {
		t.Fatalf("expected new password to verify")
	}
	if stack.credentials.Verify("oldpass", updated.PasswordHash) {
		t.Fatalf("expected old password to stop verifying")
	}
	if updated.PasswordResetTokenHash != "" || updated.PasswordResetExpiresAt != nil {
		t.Fatalf("expected reset pair cleared")
	}
	if updated.HasSession() {
		t.Fatalf("expected refresh slot cleared by reset")
	}
	if _, _, err := stack.sessions.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected old refresh rejected after reset, got %v", err)
	}

	if _, err := stack.resets.Consume(ctx, raw, "another"); !errors.Is(err, ErrTokenNotFoundOrExpired) {
		t.Fatalf("expected reused token rejected, got %v", err)
	}
}

func TestPasswordResetService_Expired(t *testing.T) {
	stack := newTestStack(t, nil)
	ctx := context.Background()
	account := stack.seedVerified(t, "a1", "a@example.com", "oldpass", domain.RoleUser)

	issuedAt := time.Now().UTC()
	stack.resets.now = func() time.Time { return issuedAt }
	raw, err := stack.resets.Issue(ctx, account)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	stack.resets.now = func() time.Time { return issuedAt.Add(PasswordResetTokenTTL + time.Second) }
	if _, err := stack.resets.Consume(ctx, raw, "newpass"); !errors.Is(err, ErrTokenNotFoundOrExpired) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}

	stored, _ := stack.repo.GetByID(ctx, "a1")
	if !stack.credentials.Verify("oldpass", stored.PasswordHash) {
		t.Fatalf("expected password unchanged")
	}
}

func TestPasswordResetService_RejectsShortPassword(t *testing.T) {
	stack := newTestStack(t, nil)
	ctx := context.Background()
	account := stack.seedVerified(t, "a1", "a@example.com", "oldpass", domain.RoleUser)

	raw, err := stack.resets.Issue(ctx, account)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = stack.resets.Consume(ctx, raw, "12345")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Fields["password"] == "" {
		t.Fatalf("expected password validation error, got %v", err)
	}
	if _, err := stack.resets.Consume(ctx, raw, "123456"); err != nil {
		t.Fatalf("token must survive a rejected password: %v", err)
	}
}

func TestPasswordResetService_UnknownToken(t *testing.T) {
	stack := newTestStack(t, nil)
	if _, err := stack.resets.Consume(context.Background(), "nope", "newpass"); !errors.Is(err, ErrTokenNotFoundOrExpired) {
		t.Fatalf("expected ErrTokenNotFoundOrExpired, got %v", err)
	}
}
