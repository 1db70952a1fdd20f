package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/talkwise/talkwise/internal/domain"
	"github.com/talkwise/talkwise/internal/store"
)

// closeCodeUnauthenticated is sent when the connection carries no resolvable
// identity. Distinct from generic failure codes so clients can react.
const closeCodeUnauthenticated = websocket.StatusCode(4001)

// CredentialResolver resolves a bearer credential to a user, or nil for
// anonymous.
type CredentialResolver interface {
	Resolve(ctx context.Context, credential string) *domain.User
}

// TopicResolver builds the conversation preamble for a raw topic identifier.
type TopicResolver interface {
	Resolve(ctx context.Context, rawID string) (string, *domain.Grammar)
}

// WebSocketHandler upgrades chat connections and runs their session loops.
type WebSocketHandler struct {
	repo          store.Repository
	credentials   CredentialResolver
	topics        TopicResolver
	streamer      CompletionStreamer
	transcriber   AudioTranscriber
	registry      *Registry
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates the chat WebSocket handler.
func NewWebSocketHandler(repo store.Repository, credentials CredentialResolver, topics TopicResolver,
	streamer CompletionStreamer, transcriber AudioTranscriber, registry *Registry,
	allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		credentials:   credentials,
		topics:        topics,
		streamer:      streamer,
		transcriber:   transcriber,
		registry:      registry,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsFrameWriter adapts websocket.Conn to FrameWriter.
type wsFrameWriter struct {
	conn *websocket.Conn
}

func (w *wsFrameWriter) WriteFrame(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.conn.Write(ctx, websocket.MessageText, data)
}

// ServeHTTP implements http.Handler for the chat WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")
	slog.Info("Chat connection request", "topic", topicID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "topic", topicID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	user := h.credentials.Resolve(ctx, r.URL.Query().Get("token"))
	if user == nil {
		slog.Warn("Rejecting unauthenticated chat connection", "topic", topicID, "ip", r.RemoteAddr)
		if closeErr := ws.Close(closeCodeUnauthenticated, "authentication required"); closeErr != nil {
			slog.Debug("Failed to close unauthenticated websocket", "error", closeErr)
		}
		return
	}

	preamble, grammar := h.topics.Resolve(ctx, topicID)
	if grammar == nil {
		slog.Info("No grammar topic resolved, turns will not be persisted", "topic", topicID, "user_id", user.ID)
	}

	session := NewSession(user, grammar, topicID, preamble, r.URL.Query().Get("tz"),
		h.repo, h.streamer, h.transcriber, &wsFrameWriter{conn: ws})

	h.registry.Join(topicID, session)
	defer h.registry.Leave(topicID, session)

	slog.Info("Chat session started", "user_id", user.ID, "topic", topicID,
		"session_id", session.SessionID(), "active_in_topic", h.registry.Count(topicID))

	// Frames are processed to completion in arrival order: one read loop,
	// no per-frame goroutines.
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Chat connection closed by client", "user_id", user.ID, "session_id", session.SessionID())
			} else {
				slog.Warn("Chat connection read error", "user_id", user.ID, "session_id", session.SessionID(), "error", err)
			}
			return
		}

		session.HandleFrame(ctx, data)
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
