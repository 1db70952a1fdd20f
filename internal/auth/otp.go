package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/talkwise/talkwise/internal/domain"
	"github.com/talkwise/talkwise/internal/store"
)

var (
	// ErrInvalidOTP is returned when a code is wrong, expired, or already used.
	ErrInvalidOTP = errors.New("invalid or expired one-time code")
)

// Mailer delivers one-time codes. Real delivery happens out of process; the
// server only needs the contract.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string, ttl time.Duration) error
}

// LogMailer writes codes to the log instead of sending email. Used in
// development and tests.
type LogMailer struct{}

// SendOTP logs the code.
func (LogMailer) SendOTP(_ context.Context, email, code string, ttl time.Duration) error {
	slog.Info("OTP issued", "email", email, "expires_in", ttl)
	return nil
}

// OTPService implements the one-time-code login flow: request a code by
// email, redeem it for a JWT session.
type OTPService struct {
	repo          store.Repository
	mailer        Mailer
	authenticator *Authenticator
	ttl           time.Duration
}

// NewOTPService creates the OTP login service.
func NewOTPService(repo store.Repository, mailer Mailer, authenticator *Authenticator, ttl time.Duration) *OTPService {
	return &OTPService{
		repo:          repo,
		mailer:        mailer,
		authenticator: authenticator,
		ttl:           ttl,
	}
}

// RequestCode creates the user on first contact, issues a fresh code, and
// hands it to the mailer.
func (s *OTPService) RequestCode(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		user = &domain.User{Email: email}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		slog.Info("New user created", "email", email, "user_id", user.ID)
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	otp := &domain.OTP{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.repo.CreateOTP(ctx, otp); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, email, code, s.ttl); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

// Redeem verifies a code and returns the user with a fresh token pair.
func (s *OTPService) Redeem(ctx context.Context, email, code string) (*domain.User, *TokenPair, error) {
	otp, err := s.repo.GetLatestOTP(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup otp: %w", err)
	}
	if otp == nil || otp.Code != code || !otp.IsValid(time.Now()) {
		return nil, nil, ErrInvalidOTP
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidOTP
	}

	if err := s.repo.MarkOTPUsed(ctx, otp.ID); err != nil {
		return nil, nil, fmt.Errorf("mark otp used: %w", err)
	}

	tokens, err := s.authenticator.IssueTokens(user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	slog.Info("OTP redeemed", "email", email, "user_id", user.ID)
	return user, tokens, nil
}

// StartCleanupWorker periodically deletes expired and redeemed codes until
// the context is cancelled.
func (s *OTPService) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.repo.DeleteExpiredOTPs(ctx, time.Now())
				if err != nil {
					slog.Warn("OTP cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Expired OTPs removed", "count", deleted)
				}
			}
		}
	}()
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
