// Package auth provides one-time-code login and JWT session credentials.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/talkwise/talkwise/internal/domain"
	"github.com/talkwise/talkwise/internal/store"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the JWT payload carried by access and refresh tokens.
type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Authenticator validates bearer credentials and mints session tokens.
type Authenticator struct {
	secret     []byte
	repo       store.Repository
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthenticator creates an Authenticator backed by the given repository.
func NewAuthenticator(secret string, repo store.Repository, accessTTL, refreshTTL time.Duration) *Authenticator {
	return &Authenticator{
		secret:     []byte(secret),
		repo:       repo,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Resolve validates an access token and loads its user. Every failure mode
// (empty, malformed, expired, wrong signing method, unknown user) resolves to
// nil — the anonymous identity. Callers decide what anonymous means for them.
func (a *Authenticator) Resolve(ctx context.Context, credential string) *domain.User {
	if credential == "" {
		return nil
	}

	claims, err := a.parse(credential)
	if err != nil {
		slog.Debug("Credential rejected", "error", err)
		return nil
	}
	if claims.TokenType != tokenTypeAccess {
		slog.Debug("Credential rejected: not an access token", "token_type", claims.TokenType)
		return nil
	}

	user, err := a.repo.GetUser(ctx, claims.UserID)
	if err != nil {
		slog.Warn("User lookup failed during credential resolution", "user_id", claims.UserID, "error", err)
		return nil
	}
	return user
}

func (a *Authenticator) parse(credential string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// TokenPair holds a freshly minted access and refresh token.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// IssueTokens mints an access/refresh token pair for a user.
func (a *Authenticator) IssueTokens(user *domain.User) (*TokenPair, error) {
	access, err := a.sign(user.ID, tokenTypeAccess, a.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := a.sign(user.ID, tokenTypeRefresh, a.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (a *Authenticator) sign(userID int64, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
