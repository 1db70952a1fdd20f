// Package grammar provides the reference grammar catalog and the system
// prompt context built from it for chat sessions.
package grammar

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/talkwise/talkwise/internal/domain"
	"github.com/talkwise/talkwise/internal/store"
)

const topicPreambleFormat = `You are an English AI assistant specializing in the following grammar topic:

Grammar Topic: %s
Description: %s

Please help users with questions related to this grammar topic. Provide clear explanations, examples, and corrections when needed. Always be encouraging and supportive in your responses.

Conversation History:
`

const genericPreamble = `You are an English AI assistant. Help users with grammar, vocabulary, pronunciation, and general English language questions. Provide clear explanations, examples, and corrections when needed. Always be encouraging and supportive in your responses.

Conversation History:
`

// Resolver turns a raw topic identifier into a system-prompt preamble and
// the matching grammar entity.
type Resolver struct {
	repo store.Repository
}

// NewResolver creates a topic context resolver.
func NewResolver(repo store.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve builds the conversation preamble for a raw topic identifier.
// Non-numeric identifiers, missing topics, and lookup faults all degrade to
// the generic preamble with a nil grammar; this function never fails.
func (r *Resolver) Resolve(ctx context.Context, rawID string) (string, *domain.Grammar) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return genericPreamble, nil
	}

	g, err := r.repo.GetGrammar(ctx, id)
	if err != nil {
		slog.Error("Grammar lookup failed, falling back to generic context", "grammar_id", id, "error", err)
		return genericPreamble, nil
	}
	if g == nil {
		return genericPreamble, nil
	}

	return fmt.Sprintf(topicPreambleFormat, g.Title, g.Description), g
}
