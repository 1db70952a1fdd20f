// Package chat implements the real-time conversation session: the WebSocket
// protocol, the per-connection session state machine, and the history API
// over persisted turns.
package chat

import (
	"encoding/json"

	"github.com/talkwise/talkwise/internal/domain"
)

// FrameKind discriminates inbound frames after decoding.
type FrameKind int

const (
	// FrameMalformed is an unparseable frame; logged and ignored.
	FrameMalformed FrameKind = iota
	// FramePing is a liveness check; no reply is sent.
	FramePing
	// FrameFeedback carries a thumb-up/thumb-down for an assistant answer.
	FrameFeedback
	// FrameAudio carries a base64 audio turn.
	FrameAudio
	// FrameText carries a plain text turn.
	FrameText
	// FrameIgnored is a structurally valid frame that matches no handler.
	FrameIgnored
)

// Frame is one decoded inbound unit. Exactly one payload field is
// meaningful, selected by Kind.
type Frame struct {
	Kind       FrameKind
	Direction  domain.FeedbackDirection
	ResponseID string
	Audio      string
	Text       string
}

// DecodeFrame parses a raw inbound frame into its tagged form. Dispatch
// precedence is fixed: malformed, ping, feedback, audio, text; anything else
// is ignored. A feedback command without a responseId is ignored too.
func DecodeFrame(raw []byte) Frame {
	var payload struct {
		Command    string  `json:"command"`
		ResponseID string  `json:"responseId"`
		Audio      *string `json:"audio"`
		Data       *string `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Frame{Kind: FrameMalformed}
	}

	switch payload.Command {
	case "ping":
		return Frame{Kind: FramePing}
	case string(domain.FeedbackUp), string(domain.FeedbackDown):
		if payload.ResponseID == "" {
			return Frame{Kind: FrameIgnored}
		}
		return Frame{
			Kind:       FrameFeedback,
			Direction:  domain.FeedbackDirection(payload.Command),
			ResponseID: payload.ResponseID,
		}
	}

	if payload.Audio != nil {
		return Frame{Kind: FrameAudio, Audio: *payload.Audio}
	}
	if payload.Data != nil {
		return Frame{Kind: FrameText, Text: *payload.Data}
	}
	return Frame{Kind: FrameIgnored}
}

// answerFrame is one relayed completion fragment, or the turn-boundary
// signal when ID is empty.
type answerFrame struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// audioTextFrame acknowledges an audio turn with its transcription before
// the answer streams.
type audioTextFrame struct {
	Error     bool   `json:"error"`
	AudioText string `json:"audio_text"`
}

const completedMessage = "completed."
