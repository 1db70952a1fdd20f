package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/talkwise/talkwise/internal/auth"
	"github.com/talkwise/talkwise/internal/domain"
	"github.com/talkwise/talkwise/internal/store"
	_ "modernc.org/sqlite"
)

type historyFixture struct {
	repo    store.Repository
	dbPath  string
	user    *domain.User
	grammar *domain.Grammar
	server  http.Handler
}

func newHistoryFixture(t *testing.T) *historyFixture {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := store.NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})

	ctx := context.Background()
	user := &domain.User{Email: "learner@example.com"}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	f := &historyFixture{repo: repo, dbPath: dbPath, user: user}
	f.grammar = f.seedGrammar(t, "Present Perfect")

	r := chi.NewRouter()
	// Stand-in for the auth middleware: every request runs as the fixture user.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.ContextWithUser(req.Context(), user)))
		})
	})
	NewHistoryHandler(repo).RegisterRoutes(r)
	f.server = r

	return f
}

// seedGrammar inserts a catalog row through a side connection; the catalog is
// read-only through Repository.
func (f *historyFixture) seedGrammar(t *testing.T, title string) *domain.Grammar {
	t.Helper()

	db, err := sql.Open("sqlite", f.dbPath+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("Failed to open seed connection: %v", err)
	}
	defer db.Close()

	now := time.Now().Unix()
	result, err := db.Exec(
		`INSERT INTO grammars (title, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		title, "description of "+title, now, now,
	)
	if err != nil {
		t.Fatalf("Failed to seed grammar: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to get grammar id: %v", err)
	}

	g, err := f.repo.GetGrammar(context.Background(), id)
	if err != nil || g == nil {
		t.Fatalf("Failed to read back seeded grammar: %v", err)
	}
	return g
}

func (f *historyFixture) seedMessage(t *testing.T, msg *domain.Message) *domain.Message {
	t.Helper()

	msg.UserID = f.user.ID
	if msg.GrammarID == 0 {
		msg.GrammarID = f.grammar.ID
	}
	if err := f.repo.CreateMessage(context.Background(), msg); err != nil {
		t.Fatalf("Failed to seed message: %v", err)
	}
	return msg
}

func (f *historyFixture) request(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	return w
}

func TestHistoryList(t *testing.T) {
	t.Parallel()
	f := newHistoryFixture(t)

	f.seedMessage(t, &domain.Message{Content: "question", MessageType: domain.MessageTypeText, SenderType: domain.SenderUser})
	f.seedMessage(t, &domain.Message{Content: "answer", MessageType: domain.MessageTypeText, SenderType: domain.SenderAI})

	w := f.request(t, http.MethodGet, "/api/chat/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Count   int              `json:"count"`
		Results []domain.Message `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Results) != 2 {
		t.Errorf("Expected 2 messages, got count=%d len=%d", resp.Count, len(resp.Results))
	}
}

func TestHistoryTopicFilter(t *testing.T) {
	t.Parallel()
	f := newHistoryFixture(t)
	other := f.seedGrammar(t, "Conditionals")

	f.seedMessage(t, &domain.Message{Content: "on topic", MessageType: domain.MessageTypeText, SenderType: domain.SenderUser})
	f.seedMessage(t, &domain.Message{GrammarID: other.ID, Content: "off topic", MessageType: domain.MessageTypeText, SenderType: domain.SenderUser})

	w := f.request(t, http.MethodGet, "/api/chat/history/"+itoa(f.grammar.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Count   int              `json:"count"`
		Results []domain.Message `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].Content != "on topic" {
		t.Errorf("Unexpected filtered result: %+v", resp)
	}
}

func TestHistoryExport(t *testing.T) {
	t.Parallel()
	f := newHistoryFixture(t)

	f.seedMessage(t, &domain.Message{Content: "first", MessageType: domain.MessageTypeText, SenderType: domain.SenderUser})
	f.seedMessage(t, &domain.Message{Content: "second", MessageType: domain.MessageTypeText, SenderType: domain.SenderAI})

	w := f.request(t, http.MethodGet, "/api/chat/history/"+itoa(f.grammar.ID)+"/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		GrammarTopic  string           `json:"grammar_topic"`
		TotalMessages int              `json:"total_messages"`
		Messages      []domain.Message `json:"messages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.GrammarTopic != "Present Perfect" {
		t.Errorf("Expected topic title, got %q", resp.GrammarTopic)
	}
	if resp.TotalMessages != 2 || len(resp.Messages) != 2 {
		t.Fatalf("Expected 2 exported messages, got %+v", resp)
	}
	if resp.Messages[0].Content != "first" {
		t.Errorf("Export must be ascending, got %q first", resp.Messages[0].Content)
	}
}

func TestHistoryExportUnknownTopic(t *testing.T) {
	t.Parallel()
	f := newHistoryFixture(t)

	w := f.request(t, http.MethodGet, "/api/chat/history/9999/export", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown topic, got %d", w.Code)
	}
}

func TestHistoryDelete(t *testing.T) {
	t.Parallel()
	f := newHistoryFixture(t)

	f.seedMessage(t, &domain.Message{Content: "gone", MessageType: domain.MessageTypeText, SenderType: domain.SenderUser})

	w := f.request(t, http.MethodDelete, "/api/chat/history/"+itoa(f.grammar.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		MessagesDeleted int64 `json:"messages_deleted"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.MessagesDeleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", resp.MessagesDeleted)
	}

	list := f.request(t, http.MethodGet, "/api/chat/history", "")
	var listResp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(list.Body).Decode(&listResp); err != nil {
		t.Fatalf("Failed to decode list response: %v", err)
	}
	if listResp.Count != 0 {
		t.Errorf("Expected empty history after delete, got %d", listResp.Count)
	}
}

func TestEngagement(t *testing.T) {
	t.Parallel()
	f := newHistoryFixture(t)

	msg := f.seedMessage(t, &domain.Message{Content: "answer", MessageType: domain.MessageTypeText, SenderType: domain.SenderAI})

	w := f.request(t, http.MethodPost, "/api/chat/messages/"+itoa(msg.ID)+"/engagement", `{"action":"thumb_up"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got domain.Message
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.ThumbUp != 1 {
		t.Errorf("Expected thumb_up=1, got %d", got.ThumbUp)
	}
}

func TestEngagementInvalidAction(t *testing.T) {
	t.Parallel()
	f := newHistoryFixture(t)

	msg := f.seedMessage(t, &domain.Message{Content: "answer", MessageType: domain.MessageTypeText, SenderType: domain.SenderAI})

	w := f.request(t, http.MethodPost, "/api/chat/messages/"+itoa(msg.ID)+"/engagement", `{"action":"shrug"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid action, got %d", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()
	f := newHistoryFixture(t)

	f.seedMessage(t, &domain.Message{Content: "q", MessageType: domain.MessageTypeText, SenderType: domain.SenderUser})
	f.seedMessage(t, &domain.Message{Content: "a", MessageType: domain.MessageTypeText, SenderType: domain.SenderAI, ThumbUp: 2})

	w := f.request(t, http.MethodGet, "/api/chat/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var stats domain.MessageStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.TotalMessages != 2 || stats.TotalThumbsUp != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
