// Package domain contains core domain types for the Talkwise application.
package domain

import (
	"time"
)

// MessageType distinguishes text turns from audio turns.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeAudio MessageType = "audio"
)

// SenderType identifies who produced a message.
type SenderType string

const (
	SenderUser SenderType = "user"
	SenderAI   SenderType = "ai"
)

// FeedbackDirection selects which engagement counter to increment.
type FeedbackDirection string

const (
	FeedbackUp   FeedbackDirection = "thumb-up"
	FeedbackDown FeedbackDirection = "thumb-down"
)

// Message is one persisted turn of a conversation between a user and the
// AI assistant. Messages are append-only: after creation only the feedback
// counters and the soft-delete timestamp ever change.
type Message struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	GrammarID     int64       `json:"grammar_id"`
	Content       string      `json:"content"`
	MessageType   MessageType `json:"message_type"`
	SenderType    SenderType  `json:"sender_type"`
	AudioPath     string      `json:"audio_path,omitempty"`
	AudioDuration *float64    `json:"audio_duration,omitempty"`
	Transcription string      `json:"transcription,omitempty"`
	ResponseID    string      `json:"response_id,omitempty"`
	SessionID     string      `json:"session_id,omitempty"`
	UserTimezone  string      `json:"user_timezone"`
	ThumbUp       int         `json:"thumb_up"`
	ThumbDown     int         `json:"thumb_down"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	DeletedAt     *time.Time  `json:"deleted_at,omitempty"`
}

// IsUserMessage returns true if the message was sent by the user.
func (m *Message) IsUserMessage() bool {
	return m.SenderType == SenderUser
}

// IsAudioMessage returns true for audio-type messages.
func (m *Message) IsAudioMessage() bool {
	return m.MessageType == MessageTypeAudio
}

// DisplayContent returns the transcription for audio messages when present,
// otherwise the raw content.
func (m *Message) DisplayContent() string {
	if m.IsAudioMessage() && m.Transcription != "" {
		return m.Transcription
	}
	return m.Content
}

// MessageFilter narrows history queries. Zero values mean "no filter".
type MessageFilter struct {
	GrammarID   int64
	MessageType MessageType
	SenderType  SenderType
	Search      string
	DateFrom    time.Time
	DateTo      time.Time
	Page        int
	PageSize    int
}

// MessageStats aggregates a user's conversation activity.
type MessageStats struct {
	TotalMessages   int `json:"total_messages"`
	UserMessages    int `json:"user_messages"`
	AIMessages      int `json:"ai_messages"`
	TextMessages    int `json:"text_messages"`
	AudioMessages   int `json:"audio_messages"`
	GrammarTopics   int `json:"grammar_topics_discussed"`
	TotalThumbsUp   int `json:"total_thumbs_up"`
	TotalThumbsDown int `json:"total_thumbs_down"`
	EngagementScore int `json:"engagement_score"`
	RecentActivity  int `json:"recent_activity_7_days"`
}
