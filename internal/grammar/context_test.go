package grammar

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/talkwise/talkwise/internal/domain"
	"github.com/talkwise/talkwise/internal/store"
)

// fakeRepo stubs just the grammar lookup; everything else panics via the
// embedded nil interface.
type fakeRepo struct {
	store.Repository
	grammars map[int64]*domain.Grammar
	err      error
}

func (f *fakeRepo) GetGrammar(_ context.Context, grammarID int64) (*domain.Grammar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grammars[grammarID], nil
}

func TestResolveKnownTopic(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{grammars: map[int64]*domain.Grammar{
		42: {ID: 42, Title: "Present Perfect", Description: "Completed actions with present relevance"},
	}}
	r := NewResolver(repo)

	preamble, g := r.Resolve(context.Background(), "42")
	if g == nil || g.ID != 42 {
		t.Fatalf("Expected grammar 42, got %+v", g)
	}
	if !strings.Contains(preamble, "Present Perfect") {
		t.Errorf("Expected preamble to name the topic, got %q", preamble)
	}
	if !strings.Contains(preamble, "Completed actions with present relevance") {
		t.Errorf("Expected preamble to carry the description, got %q", preamble)
	}
	if !strings.Contains(preamble, "Conversation History:") {
		t.Errorf("Expected preamble to end with the history marker, got %q", preamble)
	}
}

func TestResolveFallsBackToGeneric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		repo *fakeRepo
		raw  string
	}{
		{"non-numeric id", &fakeRepo{}, "general"},
		{"empty id", &fakeRepo{}, ""},
		{"negative id", &fakeRepo{}, "-5"},
		{"unknown topic", &fakeRepo{grammars: map[int64]*domain.Grammar{}}, "7"},
		{"lookup failure", &fakeRepo{err: errors.New("db down")}, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			preamble, g := NewResolver(tt.repo).Resolve(context.Background(), tt.raw)
			if g != nil {
				t.Errorf("Expected nil grammar, got %+v", g)
			}
			if !strings.Contains(preamble, "English AI assistant") {
				t.Errorf("Expected generic preamble, got %q", preamble)
			}
			if strings.Contains(preamble, "Grammar Topic:") {
				t.Errorf("Generic preamble should not name a topic, got %q", preamble)
			}
		})
	}
}
