// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/talkwise/talkwise/internal/domain"
)

// Repository defines the interface for persisting users, reference content,
// and chat messages.
type Repository interface {
	// GetUser retrieves a user by id. Returns nil, nil when not found.
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	// GetUserByEmail retrieves a user by email. Returns nil, nil when not found.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateUser inserts a new user and fills in its id.
	CreateUser(ctx context.Context, user *domain.User) error

	// CreateOTP inserts a one-time code.
	CreateOTP(ctx context.Context, otp *domain.OTP) error

	// GetLatestOTP retrieves the most recent unredeemed code for an email.
	// Returns nil, nil when none exists.
	GetLatestOTP(ctx context.Context, email string) (*domain.OTP, error)

	// MarkOTPUsed flags a code as redeemed.
	MarkOTPUsed(ctx context.Context, otpID int64) error

	// DeleteExpiredOTPs removes codes that are expired or already used.
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)

	// GetGrammar retrieves an active grammar topic. Returns nil, nil when
	// missing or soft-deleted.
	GetGrammar(ctx context.Context, grammarID int64) (*domain.Grammar, error)

	// ListGrammars returns a page of active grammar topics ordered by id.
	ListGrammars(ctx context.Context, page, pageSize int) ([]*domain.Grammar, int, error)

	// GetExpression retrieves an active expression entry.
	GetExpression(ctx context.Context, expressionID int64) (*domain.Expression, error)

	// ListExpressions returns a page of active expressions, newest first.
	ListExpressions(ctx context.Context, page, pageSize int) ([]*domain.Expression, int, error)

	// CreateMessage inserts a chat message and fills in its id.
	CreateMessage(ctx context.Context, msg *domain.Message) error

	// GetMessage retrieves an active message owned by the user.
	// Returns nil, nil when not found.
	GetMessage(ctx context.Context, messageID, userID int64) (*domain.Message, error)

	// ListMessages returns a page of active messages owned by the user,
	// newest first, plus the total count matching the filter.
	ListMessages(ctx context.Context, userID int64, filter domain.MessageFilter) ([]*domain.Message, int, error)

	// ExportMessages returns all active messages for a user and grammar
	// topic in ascending creation order.
	ExportMessages(ctx context.Context, userID, grammarID int64) ([]*domain.Message, error)

	// IncrementFeedback atomically bumps the thumb-up or thumb-down counter
	// on the active message with the given response id owned by the user.
	// Returns false when no such message exists.
	IncrementFeedback(ctx context.Context, responseID string, userID int64, direction domain.FeedbackDirection) (bool, error)

	// IncrementFeedbackByID bumps a counter on a message addressed by row id.
	IncrementFeedbackByID(ctx context.Context, messageID, userID int64, direction domain.FeedbackDirection) (bool, error)

	// SoftDeleteMessages marks all active messages for a user and grammar
	// topic as deleted and returns how many rows were affected.
	SoftDeleteMessages(ctx context.Context, userID, grammarID int64) (int64, error)

	// MessageStats aggregates activity counters for a user.
	MessageStats(ctx context.Context, userID int64, grammarID int64) (*domain.MessageStats, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
