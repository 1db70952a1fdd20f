// Package ai wraps the OpenAI API for streaming chat completions and
// speech-to-text transcription.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
	"github.com/talkwise/talkwise/internal/config"
)

// maxResponseTokens caps assistant answers. The limit is enforced by the
// completion service, not recomputed locally.
const maxResponseTokens = 300

var errCompletionStream = errors.New("completion stream failed")

// Client provides streaming completions and audio transcription.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates an OpenAI-backed client from configuration.
func NewClient(cfg config.OpenAIConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(clientConfig),
		model: cfg.Model,
	}
}

// StreamCompletion opens one streaming completion request for the given
// conversation text and yields non-empty answer fragments as they arrive.
// Completions are deterministic (temperature zero) and capped in length.
// The sequence is finite and non-restartable; it ends on upstream EOF or
// with a terminal error.
func (c *Client) StreamCompletion(ctx context.Context, conversation string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: conversation},
			},
			Temperature: 0,
			MaxTokens:   maxResponseTokens,
			Stream:      true,
		})
		if err != nil {
			yield("", fmt.Errorf("%w: %v", errCompletionStream, err))
			return
		}
		defer func() {
			if closeErr := stream.Close(); closeErr != nil {
				slog.Debug("Failed to close completion stream", "error", closeErr)
			}
		}()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("%w: %v", errCompletionStream, err))
				return
			}

			for _, choice := range resp.Choices {
				part := choice.Delta.Content
				if part == "" {
					continue
				}
				if !yield(part, nil) {
					return
				}
			}
		}
	}
}

// Transcribe runs speech-to-text over raw audio bytes. The filename only
// hints the audio format to the service.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return resp.Text, nil
}
