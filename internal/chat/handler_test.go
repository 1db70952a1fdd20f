package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/talkwise/talkwise/internal/domain"
)

type fakeCredentials struct {
	user *domain.User
}

func (f *fakeCredentials) Resolve(_ context.Context, credential string) *domain.User {
	if credential == "valid-token" {
		return f.user
	}
	return nil
}

type fakeTopics struct {
	grammar *domain.Grammar
}

func (f *fakeTopics) Resolve(_ context.Context, _ string) (string, *domain.Grammar) {
	return "preamble\nConversation History:\n", f.grammar
}

type wsFixture struct {
	registry *Registry
	store    *fakeStore
	server   *httptest.Server
}

func newWSFixture(t *testing.T, allowedOrigin string, isDev bool) *wsFixture {
	t.Helper()

	f := &wsFixture{
		registry: NewRegistry(),
		store:    &fakeStore{feedbackFound: true},
	}
	handler := NewWebSocketHandler(
		f.store,
		&fakeCredentials{user: &domain.User{ID: 7}},
		&fakeTopics{grammar: topicGrammar()},
		&fakeStreamer{fragments: []string{"Hello!"}},
		&fakeTranscriber{},
		f.registry,
		allowedOrigin,
		isDev,
	)

	r := chi.NewRouter()
	r.Get("/ws/chat/{topicID}", handler.ServeHTTP)
	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)

	return f
}

func (f *wsFixture) url(topicID, token string) string {
	u := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/chat/" + topicID
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func waitForCount(t *testing.T, r *Registry, topicID string, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for r.Count(topicID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %d sessions in topic %s, have %d", want, topicID, r.Count(topicID))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketRejectsUnresolvableCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
	}{
		{"absent token", ""},
		{"invalid token", "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newWSFixture(t, "", true)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			ws, _, err := websocket.Dial(ctx, f.url("42", tt.token), nil)
			if err != nil {
				t.Fatalf("Expected handshake to succeed before auth close, got %v", err)
			}
			defer ws.CloseNow()

			// The server closes the fresh connection with the auth status.
			_, _, err = ws.Read(ctx)
			if got := websocket.CloseStatus(err); got != closeCodeUnauthenticated {
				t.Errorf("Expected close status %d, got %d (err: %v)", closeCodeUnauthenticated, got, err)
			}

			if count := f.registry.Count("42"); count != 0 {
				t.Errorf("Anonymous connection must not register a session, have %d", count)
			}
		})
	}
}

func TestWebSocketSessionLifecycle(t *testing.T) {
	t.Parallel()
	f := newWSFixture(t, "", true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, f.url("42", "valid-token"), nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer ws.CloseNow()

	if err := ws.Write(ctx, websocket.MessageText, []byte(`{"data":"hello"}`)); err != nil {
		t.Fatalf("Failed to send frame: %v", err)
	}

	// Read frames until the turn boundary; by then the session is live.
	var sawFragment bool
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			t.Fatalf("Failed to read answer: %v", err)
		}
		var frame answerFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("Failed to decode frame %q: %v", data, err)
		}
		if frame.Message == completedMessage {
			break
		}
		sawFragment = true
	}
	if !sawFragment {
		t.Error("Expected at least one answer fragment before completion")
	}

	if count := f.registry.Count("42"); count != 1 {
		t.Errorf("Expected 1 registered session, got %d", count)
	}

	// The assistant message is persisted after the completion signal; give
	// the session goroutine a moment to finish the turn.
	deadline := time.Now().Add(2 * time.Second)
	for f.store.createdCount() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected user and assistant messages persisted, got %d", f.store.createdCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := ws.Close(websocket.StatusNormalClosure, "done"); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
	waitForCount(t, f.registry, "42", 0)
}

func TestWebSocketOriginRejected(t *testing.T) {
	t.Parallel()
	f := newWSFixture(t, "https://app.example.com", false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")

	ws, _, err := websocket.Dial(ctx, f.url("42", "valid-token"), &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err == nil {
		ws.CloseNow()
		t.Fatal("Expected handshake to be rejected for a foreign origin")
	}

	if count := f.registry.Count("42"); count != 0 {
		t.Errorf("Rejected origin must not register a session, have %d", count)
	}
}

func TestWebSocketOriginAllowed(t *testing.T) {
	t.Parallel()
	f := newWSFixture(t, "https://app.example.com", false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", "https://app.example.com")

	ws, _, err := websocket.Dial(ctx, f.url("42", "valid-token"), &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		t.Fatalf("Expected matching origin to connect, got %v", err)
	}
	defer ws.CloseNow()

	waitForCount(t, f.registry, "42", 1)
}
