package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talkwise/talkwise/internal/domain"
	"github.com/talkwise/talkwise/internal/speech"
	"github.com/talkwise/talkwise/internal/store"
)

// CompletionStreamer produces incremental answer fragments for a
// conversation. The sequence is finite and consumed at most once per turn.
type CompletionStreamer interface {
	StreamCompletion(ctx context.Context, conversation string) iter.Seq2[string, error]
}

// AudioTranscriber converts a base64 audio payload into text plus a stored
// artifact reference.
type AudioTranscriber interface {
	Transcribe(ctx context.Context, userID int64, payload string) (*speech.Result, error)
}

// FrameWriter relays one outbound frame to the client.
type FrameWriter interface {
	WriteFrame(ctx context.Context, v interface{}) error
}

// Session owns the state of one live conversation: the authenticated user,
// the resolved topic, and the accumulated transcript. Frames are handled
// one at a time by the connection's read loop, so Session needs no internal
// locking.
type Session struct {
	handle    string
	sessionID string
	topicID   string
	user      *domain.User
	grammar   *domain.Grammar
	preamble  string
	timezone  string

	transcript strings.Builder

	repo        store.Repository
	streamer    CompletionStreamer
	transcriber AudioTranscriber
	writer      FrameWriter
}

// NewSession creates the session for an accepted, authenticated connection.
// A nil grammar is allowed: the conversation still runs on the generic
// preamble, but no turns are persisted.
func NewSession(user *domain.User, grammar *domain.Grammar, topicID, preamble, timezone string,
	repo store.Repository, streamer CompletionStreamer, transcriber AudioTranscriber, writer FrameWriter) *Session {
	if timezone == "" {
		timezone = "UTC"
	}
	return &Session{
		handle:      uuid.NewString(),
		sessionID:   fmt.Sprintf("%d-%s-%d", user.ID, topicID, time.Now().UnixNano()),
		topicID:     topicID,
		user:        user,
		grammar:     grammar,
		preamble:    preamble,
		timezone:    timezone,
		repo:        repo,
		streamer:    streamer,
		transcriber: transcriber,
		writer:      writer,
	}
}

// Handle returns the unique registry handle for this session.
func (s *Session) Handle() string {
	return s.handle
}

// SessionID returns the correlation id attached to persisted turns.
func (s *Session) SessionID() string {
	return s.sessionID
}

// HandleFrame dispatches one inbound frame. Frame-scoped failures are
// absorbed here; only transport-level errors belong to the caller.
func (s *Session) HandleFrame(ctx context.Context, raw []byte) {
	frame := DecodeFrame(raw)

	switch frame.Kind {
	case FrameMalformed:
		slog.Warn("Ignoring malformed frame", "user_id", s.user.ID, "session_id", s.sessionID)
	case FramePing:
		// Liveness only.
	case FrameFeedback:
		s.applyFeedback(ctx, frame)
	case FrameAudio:
		s.handleAudioTurn(ctx, frame.Audio)
	case FrameText:
		s.handleTextTurn(ctx, frame.Text)
	case FrameIgnored:
		// Valid JSON with no recognized command or payload.
	}
}

func (s *Session) applyFeedback(ctx context.Context, frame Frame) {
	found, err := s.repo.IncrementFeedback(ctx, frame.ResponseID, s.user.ID, frame.Direction)
	if err != nil {
		slog.Warn("Feedback increment failed", "user_id", s.user.ID, "response_id", frame.ResponseID, "error", err)
		return
	}
	if !found {
		slog.Info("Feedback targets unknown response", "user_id", s.user.ID, "response_id", frame.ResponseID)
	}
}

func (s *Session) handleAudioTurn(ctx context.Context, payload string) {
	result, err := s.transcriber.Transcribe(ctx, s.user.ID, payload)
	if err != nil {
		if errors.Is(err, speech.ErrDecode) {
			slog.Warn("Dropping undecodable audio frame", "user_id", s.user.ID, "session_id", s.sessionID, "error", err)
		} else {
			slog.Error("Transcription failed, dropping audio frame", "user_id", s.user.ID, "session_id", s.sessionID, "error", err)
		}
		return
	}

	s.persistMessage(ctx, &domain.Message{
		Content:       result.Text,
		MessageType:   domain.MessageTypeAudio,
		SenderType:    domain.SenderUser,
		AudioPath:     result.AudioPath,
		Transcription: result.Text,
	})

	if err := s.writer.WriteFrame(ctx, audioTextFrame{AudioText: result.Text}); err != nil {
		slog.Warn("Failed to send transcription acknowledgment", "user_id", s.user.ID, "error", err)
	}

	s.answerTurn(ctx, result.Text)
}

func (s *Session) handleTextTurn(ctx context.Context, text string) {
	s.persistMessage(ctx, &domain.Message{
		Content:     text,
		MessageType: domain.MessageTypeText,
		SenderType:  domain.SenderUser,
	})

	s.answerTurn(ctx, text)
}

// answerTurn runs one completion round: extend the transcript with the
// user's text, stream the answer back fragment by fragment, then persist
// the full answer. The completion signal is sent even when the stream
// fails partway; only content actually received is persisted or appended.
func (s *Session) answerTurn(ctx context.Context, userText string) {
	s.transcript.WriteString("User: " + userText + "\n")

	responseID := newResponseID()
	conversation := s.preamble + s.transcript.String()

	var answer strings.Builder
	var streamErr error

	for part, err := range s.streamer.StreamCompletion(ctx, conversation) {
		if err != nil {
			streamErr = err
			break
		}
		if writeErr := s.writer.WriteFrame(ctx, answerFrame{Message: part, ID: responseID}); writeErr != nil {
			// Transport gone; stop pulling from upstream but keep what we have.
			slog.Warn("Failed to relay answer fragment", "user_id", s.user.ID, "session_id", s.sessionID, "error", writeErr)
			break
		}
		answer.WriteString(part)
	}

	if err := s.writer.WriteFrame(ctx, answerFrame{Message: completedMessage}); err != nil {
		slog.Warn("Failed to send completion signal", "user_id", s.user.ID, "session_id", s.sessionID, "error", err)
	}

	if streamErr != nil {
		slog.Error("Completion stream failed", "user_id", s.user.ID, "session_id", s.sessionID, "error", streamErr)
	}

	if answer.Len() == 0 {
		return
	}

	s.persistMessage(ctx, &domain.Message{
		Content:     answer.String(),
		MessageType: domain.MessageTypeText,
		SenderType:  domain.SenderAI,
		ResponseID:  responseID,
	})
	s.transcript.WriteString("AI assistant Answer: " + answer.String() + "\n")
}

// persistMessage records one turn. Sessions without a resolved grammar
// topic skip persistence entirely; store faults are logged and swallowed so
// the live relay never stalls on durability.
func (s *Session) persistMessage(ctx context.Context, msg *domain.Message) {
	if s.grammar == nil {
		slog.Info("Skipping message persistence: no grammar topic resolved",
			"user_id", s.user.ID, "topic", s.topicID, "session_id", s.sessionID)
		return
	}

	msg.UserID = s.user.ID
	msg.GrammarID = s.grammar.ID
	msg.SessionID = s.sessionID
	msg.UserTimezone = s.timezone

	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		slog.Warn("Failed to persist message", "user_id", s.user.ID, "session_id", s.sessionID,
			"sender_type", msg.SenderType, "error", err)
	}
}

// newResponseID derives a per-turn correlation id from the current time.
// Nanosecond precision keeps ids unique across back-to-back turns.
func newResponseID() string {
	return time.Now().UTC().Format("20060102150405.000000000")
}
