package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/talkwise/talkwise/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		deleted_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS otps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL,
		code TEXT NOT NULL,
		used INTEGER NOT NULL DEFAULT 0,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_otps_email_created ON otps(email, created_at);

	CREATE TABLE IF NOT EXISTS grammars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		deleted_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS expressions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		deleted_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		grammar_id INTEGER NOT NULL REFERENCES grammars(id),
		content TEXT NOT NULL,
		message_type TEXT NOT NULL DEFAULT 'text',
		sender_type TEXT NOT NULL,
		audio_path TEXT,
		audio_duration REAL,
		transcription TEXT,
		response_id TEXT,
		session_id TEXT,
		user_timezone TEXT NOT NULL DEFAULT 'UTC',
		thumb_up INTEGER NOT NULL DEFAULT 0,
		thumb_down INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		deleted_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_messages_user_grammar ON messages(user_id, grammar_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_response_id ON messages(response_id);
	CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, created_at, updated_at
		FROM users WHERE id = ? AND deleted_at IS NULL`
	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, created_at, updated_at
		FROM users WHERE email = ? AND deleted_at IS NULL`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var createdAt, updatedAt int64

	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// CreateUser inserts a new user and fills in its id.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, first_name, last_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		user.Email, user.FirstName, user.LastName, user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("user last insert id: %w", err)
	}
	return nil
}

// CreateOTP inserts a one-time code.
func (s *SQLiteStore) CreateOTP(ctx context.Context, otp *domain.OTP) error {
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO otps (email, code, used, expires_at, created_at) VALUES (?, ?, 0, ?, ?)`,
		otp.Email, otp.Code, otp.ExpiresAt.Unix(), otp.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert otp: %w", err)
	}
	otp.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("otp last insert id: %w", err)
	}
	return nil
}

// GetLatestOTP retrieves the most recent unredeemed code for an email.
func (s *SQLiteStore) GetLatestOTP(ctx context.Context, email string) (*domain.OTP, error) {
	query := `
		SELECT id, email, code, used, expires_at, created_at
		FROM otps WHERE email = ? AND used = 0
		ORDER BY created_at DESC, id DESC LIMIT 1`

	var otp domain.OTP
	var used int
	var expiresAt, createdAt int64

	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&otp.ID, &otp.Email, &otp.Code, &used, &expiresAt, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan otp row: %w", err)
	}

	otp.Used = used != 0
	otp.ExpiresAt = time.Unix(expiresAt, 0)
	otp.CreatedAt = time.Unix(createdAt, 0)
	return &otp, nil
}

// MarkOTPUsed flags a code as redeemed.
func (s *SQLiteStore) MarkOTPUsed(ctx context.Context, otpID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE otps SET used = 1 WHERE id = ?`, otpID)
	if err != nil {
		return fmt.Errorf("mark otp used: %w", err)
	}
	return nil
}

// DeleteExpiredOTPs removes codes that are expired or already used.
func (s *SQLiteStore) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM otps WHERE expires_at < ? OR used = 1`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}
	return result.RowsAffected()
}

// GetGrammar retrieves an active grammar topic.
func (s *SQLiteStore) GetGrammar(ctx context.Context, grammarID int64) (*domain.Grammar, error) {
	query := `
		SELECT id, title, description, created_at, updated_at
		FROM grammars WHERE id = ? AND deleted_at IS NULL`

	var g domain.Grammar
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, grammarID).Scan(
		&g.ID, &g.Title, &g.Description, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan grammar row: %w", err)
	}

	g.CreatedAt = time.Unix(createdAt, 0)
	g.UpdatedAt = time.Unix(updatedAt, 0)
	return &g, nil
}

// ListGrammars returns a page of active grammar topics ordered by id.
func (s *SQLiteStore) ListGrammars(ctx context.Context, page, pageSize int) ([]*domain.Grammar, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM grammars WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count grammars: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, created_at, updated_at
		FROM grammars WHERE deleted_at IS NULL
		ORDER BY id LIMIT ? OFFSET ?`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("query grammars: %w", err)
	}
	defer rows.Close()

	var grammars []*domain.Grammar
	for rows.Next() {
		var g domain.Grammar
		var createdAt, updatedAt int64
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &createdAt, &updatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan grammar row: %w", err)
		}
		g.CreatedAt = time.Unix(createdAt, 0)
		g.UpdatedAt = time.Unix(updatedAt, 0)
		grammars = append(grammars, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate grammars: %w", err)
	}

	return grammars, total, nil
}

// GetExpression retrieves an active expression entry.
func (s *SQLiteStore) GetExpression(ctx context.Context, expressionID int64) (*domain.Expression, error) {
	query := `
		SELECT id, title, description, created_at, updated_at
		FROM expressions WHERE id = ? AND deleted_at IS NULL`

	var e domain.Expression
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, expressionID).Scan(
		&e.ID, &e.Title, &e.Description, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan expression row: %w", err)
	}

	e.CreatedAt = time.Unix(createdAt, 0)
	e.UpdatedAt = time.Unix(updatedAt, 0)
	return &e, nil
}

// ListExpressions returns a page of active expressions, newest first.
func (s *SQLiteStore) ListExpressions(ctx context.Context, page, pageSize int) ([]*domain.Expression, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expressions WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expressions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, created_at, updated_at
		FROM expressions WHERE deleted_at IS NULL
		ORDER BY id DESC LIMIT ? OFFSET ?`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("query expressions: %w", err)
	}
	defer rows.Close()

	var expressions []*domain.Expression
	for rows.Next() {
		var e domain.Expression
		var createdAt, updatedAt int64
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &createdAt, &updatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan expression row: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		e.UpdatedAt = time.Unix(updatedAt, 0)
		expressions = append(expressions, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expressions: %w", err)
	}

	return expressions, total, nil
}

const messageColumns = `id, user_id, grammar_id, content, message_type, sender_type,
	audio_path, audio_duration, transcription, response_id, session_id,
	user_timezone, thumb_up, thumb_down, created_at, updated_at`

// CreateMessage inserts a chat message and fills in its id.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *domain.Message) error {
	now := time.Now()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now
	if msg.UserTimezone == "" {
		msg.UserTimezone = "UTC"
	}

	insert := func() (sql.Result, error) {
		return s.db.ExecContext(ctx, `
			INSERT INTO messages (
				user_id, grammar_id, content, message_type, sender_type,
				audio_path, audio_duration, transcription, response_id, session_id,
				user_timezone, thumb_up, thumb_down, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.UserID, msg.GrammarID, msg.Content, string(msg.MessageType), string(msg.SenderType),
			nullString(msg.AudioPath), nullFloat(msg.AudioDuration), nullString(msg.Transcription),
			nullString(msg.ResponseID), nullString(msg.SessionID),
			msg.UserTimezone, msg.ThumbUp, msg.ThumbDown,
			msg.CreatedAt.Unix(), msg.UpdatedAt.Unix(),
		)
	}

	result, err := insert()
	if isSQLiteConflict(err) {
		// Concurrent sessions write through the same file; one retry after
		// the busy_timeout window is usually enough.
		result, err = insert()
	}
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	msg.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("message last insert id: %w", err)
	}
	return nil
}

// GetMessage retrieves an active message owned by the user.
func (s *SQLiteStore) GetMessage(ctx context.Context, messageID, userID int64) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages WHERE id = ? AND user_id = ? AND deleted_at IS NULL`

	row := s.db.QueryRowContext(ctx, query, messageID, userID)
	msg, err := scanMessage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan message row: %w", err)
	}
	return msg, nil
}

// ListMessages returns a page of active messages owned by the user, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, userID int64, filter domain.MessageFilter) ([]*domain.Message, int, error) {
	where := []string{"user_id = ?", "deleted_at IS NULL"}
	args := []interface{}{userID}

	if filter.GrammarID != 0 {
		where = append(where, "grammar_id = ?")
		args = append(args, filter.GrammarID)
	}
	if filter.MessageType != "" {
		where = append(where, "message_type = ?")
		args = append(args, string(filter.MessageType))
	}
	if filter.SenderType != "" {
		where = append(where, "sender_type = ?")
		args = append(args, string(filter.SenderType))
	}
	if filter.Search != "" {
		where = append(where, "(content LIKE ? OR transcription LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if !filter.DateFrom.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.DateFrom.Unix())
	}
	if !filter.DateTo.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, filter.DateTo.Unix())
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM messages WHERE ` + whereClause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` + whereClause +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// ExportMessages returns all active messages for a user and grammar topic
// in ascending creation order.
func (s *SQLiteStore) ExportMessages(ctx context.Context, userID, grammarID int64) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages
		WHERE user_id = ? AND grammar_id = ? AND deleted_at IS NULL
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, userID, grammarID)
	if err != nil {
		return nil, fmt.Errorf("query export messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// IncrementFeedback atomically bumps a feedback counter on the message with
// the given response id. The increment happens inside a single UPDATE so
// concurrent feedback frames cannot lose updates.
func (s *SQLiteStore) IncrementFeedback(ctx context.Context, responseID string, userID int64, direction domain.FeedbackDirection) (bool, error) {
	column, err := feedbackColumn(direction)
	if err != nil {
		return false, err
	}

	query := `UPDATE messages SET ` + column + ` = ` + column + ` + 1, updated_at = ?
		WHERE response_id = ? AND user_id = ? AND deleted_at IS NULL`

	result, err := s.db.ExecContext(ctx, query, time.Now().Unix(), responseID, userID)
	if err != nil {
		return false, fmt.Errorf("increment feedback: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("feedback rows affected: %w", err)
	}
	return rows > 0, nil
}

// IncrementFeedbackByID bumps a counter on a message addressed by row id.
func (s *SQLiteStore) IncrementFeedbackByID(ctx context.Context, messageID, userID int64, direction domain.FeedbackDirection) (bool, error) {
	column, err := feedbackColumn(direction)
	if err != nil {
		return false, err
	}

	query := `UPDATE messages SET ` + column + ` = ` + column + ` + 1, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`

	result, err := s.db.ExecContext(ctx, query, time.Now().Unix(), messageID, userID)
	if err != nil {
		return false, fmt.Errorf("increment feedback by id: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("feedback rows affected: %w", err)
	}
	return rows > 0, nil
}

func feedbackColumn(direction domain.FeedbackDirection) (string, error) {
	switch direction {
	case domain.FeedbackUp:
		return "thumb_up", nil
	case domain.FeedbackDown:
		return "thumb_down", nil
	default:
		return "", fmt.Errorf("unknown feedback direction %q", direction)
	}
}

// SoftDeleteMessages marks all active messages for a user and grammar topic
// as deleted.
func (s *SQLiteStore) SoftDeleteMessages(ctx context.Context, userID, grammarID int64) (int64, error) {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx, `
		UPDATE messages SET deleted_at = ?, updated_at = ?
		WHERE user_id = ? AND grammar_id = ? AND deleted_at IS NULL`,
		now, now, userID, grammarID)
	if err != nil {
		return 0, fmt.Errorf("soft delete messages: %w", err)
	}
	return result.RowsAffected()
}

// MessageStats aggregates activity counters for a user. A zero grammarID
// covers all topics.
func (s *SQLiteStore) MessageStats(ctx context.Context, userID int64, grammarID int64) (*domain.MessageStats, error) {
	where := "user_id = ? AND deleted_at IS NULL"
	args := []interface{}{userID}
	if grammarID != 0 {
		where += " AND grammar_id = ?"
		args = append(args, grammarID)
	}

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN sender_type = 'user' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN sender_type = 'ai' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN message_type = 'text' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN message_type = 'audio' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT grammar_id),
			COALESCE(SUM(thumb_up), 0),
			COALESCE(SUM(thumb_down), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM messages WHERE ` + where

	weekAgo := time.Now().AddDate(0, 0, -7).Unix()
	queryArgs := append([]interface{}{weekAgo}, args...)

	var stats domain.MessageStats
	err := s.db.QueryRowContext(ctx, query, queryArgs...).Scan(
		&stats.TotalMessages, &stats.UserMessages, &stats.AIMessages,
		&stats.TextMessages, &stats.AudioMessages, &stats.GrammarTopics,
		&stats.TotalThumbsUp, &stats.TotalThumbsDown, &stats.RecentActivity,
	)
	if err != nil {
		return nil, fmt.Errorf("query message stats: %w", err)
	}
	stats.EngagementScore = stats.TotalThumbsUp - stats.TotalThumbsDown

	return &stats, nil
}

func collectMessages(rows *sql.Rows) ([]*domain.Message, error) {
	var messages []*domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func scanMessage(scan func(dest ...interface{}) error) (*domain.Message, error) {
	var msg domain.Message
	var messageType, senderType string
	var audioPath, transcription, responseID, sessionID sql.NullString
	var audioDuration sql.NullFloat64
	var createdAt, updatedAt int64

	err := scan(
		&msg.ID, &msg.UserID, &msg.GrammarID, &msg.Content, &messageType, &senderType,
		&audioPath, &audioDuration, &transcription, &responseID, &sessionID,
		&msg.UserTimezone, &msg.ThumbUp, &msg.ThumbDown, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.MessageType = domain.MessageType(messageType)
	msg.SenderType = domain.SenderType(senderType)
	msg.AudioPath = audioPath.String
	msg.Transcription = transcription.String
	msg.ResponseID = responseID.String
	msg.SessionID = sessionID.String
	if audioDuration.Valid {
		msg.AudioDuration = &audioDuration.Float64
	}
	msg.CreatedAt = time.Unix(createdAt, 0)
	msg.UpdatedAt = time.Unix(updatedAt, 0)

	return &msg, nil
}

// isSQLiteConflict reports whether err is a SQLite concurrency error
// (SQLITE_BUSY or "database is locked") that warrants a retry.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
