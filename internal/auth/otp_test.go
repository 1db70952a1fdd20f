package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type captureMailer struct {
	code string
}

func (m *captureMailer) SendOTP(_ context.Context, _, code string, _ time.Duration) error {
	m.code = code
	return nil
}

func newTestOTPService(t *testing.T, ttl time.Duration) (*OTPService, *captureMailer) {
	t.Helper()

	repo := newTestRepo(t)
	authenticator := NewAuthenticator("test-secret", repo, time.Hour, 24*time.Hour)
	mailer := &captureMailer{}
	return NewOTPService(repo, mailer, authenticator, ttl), mailer
}

func TestOTPLoginFlow(t *testing.T) {
	t.Parallel()
	svc, mailer := newTestOTPService(t, 3*time.Minute)
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "learner@example.com"); err != nil {
		t.Fatalf("Failed to request code: %v", err)
	}
	if len(mailer.code) != 6 {
		t.Fatalf("Expected 6-digit code, got %q", mailer.code)
	}

	user, tokens, err := svc.Redeem(ctx, "learner@example.com", mailer.code)
	if err != nil {
		t.Fatalf("Failed to redeem code: %v", err)
	}
	if user == nil || user.Email != "learner@example.com" {
		t.Errorf("Unexpected user: %+v", user)
	}
	if tokens == nil || tokens.Access == "" || tokens.Refresh == "" {
		t.Error("Expected a full token pair")
	}

	// A code is single-use.
	if _, _, err := svc.Redeem(ctx, "learner@example.com", mailer.code); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("Expected ErrInvalidOTP on reuse, got %v", err)
	}
}

func TestRedeemWrongCode(t *testing.T) {
	t.Parallel()
	svc, mailer := newTestOTPService(t, 3*time.Minute)
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "learner@example.com"); err != nil {
		t.Fatalf("Failed to request code: %v", err)
	}

	wrong := "000000"
	if wrong == mailer.code {
		wrong = "000001"
	}
	if _, _, err := svc.Redeem(ctx, "learner@example.com", wrong); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("Expected ErrInvalidOTP for wrong code, got %v", err)
	}
}

func TestRedeemExpiredCode(t *testing.T) {
	t.Parallel()
	svc, mailer := newTestOTPService(t, -time.Minute)
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "learner@example.com"); err != nil {
		t.Fatalf("Failed to request code: %v", err)
	}

	if _, _, err := svc.Redeem(ctx, "learner@example.com", mailer.code); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("Expected ErrInvalidOTP for expired code, got %v", err)
	}
}

func TestRedeemUnknownEmail(t *testing.T) {
	t.Parallel()
	svc, _ := newTestOTPService(t, 3*time.Minute)

	if _, _, err := svc.Redeem(context.Background(), "nobody@example.com", "123456"); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("Expected ErrInvalidOTP for unknown email, got %v", err)
	}
}

func TestRequestCodeCreatesUser(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	authenticator := NewAuthenticator("test-secret", repo, time.Hour, 24*time.Hour)
	svc := NewOTPService(repo, &captureMailer{}, authenticator, 3*time.Minute)
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "fresh@example.com"); err != nil {
		t.Fatalf("Failed to request code: %v", err)
	}

	user, err := repo.GetUserByEmail(ctx, "fresh@example.com")
	if err != nil {
		t.Fatalf("Failed to look up user: %v", err)
	}
	if user == nil {
		t.Fatal("Expected user to be created on first code request")
	}
}
