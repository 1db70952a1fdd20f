// Package speech turns base64 audio payloads into text via an external
// speech-to-text service, persisting the raw audio alongside.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDecode marks a malformed audio payload. The offending frame is dropped;
// the session stays up.
var ErrDecode = errors.New("audio payload decode failed")

// SpeechToText is the transcription service contract.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Result is a successful transcription with its stored artifact.
type Result struct {
	Text      string
	AudioPath string
}

// Transcriber decodes inbound audio payloads, stores them, and transcribes
// them.
type Transcriber struct {
	stt SpeechToText
	dir string
}

// NewTranscriber creates a transcriber storing artifacts under dir.
func NewTranscriber(stt SpeechToText, dir string) (*Transcriber, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}
	return &Transcriber{stt: stt, dir: dir}, nil
}

// Transcribe handles a data-URI-style payload: "<header>,<base64>". The
// decoded bytes are written to a uniquely named artifact before the service
// call so the raw audio survives transcription failures.
func (t *Transcriber) Transcribe(ctx context.Context, userID int64, payload string) (*Result, error) {
	_, encoded, found := strings.Cut(payload, ",")
	if !found {
		return nil, fmt.Errorf("%w: missing payload separator", ErrDecode)
	}

	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	name := fmt.Sprintf("%d_%s_%s.wav",
		userID,
		time.Now().UTC().Format("20060102150405"),
		uuid.NewString()[:8],
	)
	path := filepath.Join(t.dir, name)

	if err := t.writeArtifact(path, audio); err != nil {
		return nil, err
	}

	text, err := t.stt.Transcribe(ctx, bytes.NewReader(audio), name)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}

	return &Result{Text: text, AudioPath: path}, nil
}

func (t *Transcriber) writeArtifact(path string, audio []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create audio artifact: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(audio); err != nil {
		return fmt.Errorf("write audio artifact: %w", err)
	}
	return nil
}
