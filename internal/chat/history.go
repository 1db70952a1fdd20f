package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/talkwise/talkwise/internal/api"
	"github.com/talkwise/talkwise/internal/auth"
	"github.com/talkwise/talkwise/internal/domain"
	"github.com/talkwise/talkwise/internal/store"
)

const (
	historyPageSize    = 50
	historyMaxPageSize = 200
)

// HistoryHandler serves the REST endpoints over persisted conversation
// turns. All routes require an authenticated user and only ever touch that
// user's active (non-soft-deleted) messages.
type HistoryHandler struct {
	repo store.Repository
}

// NewHistoryHandler creates the chat history HTTP handler.
func NewHistoryHandler(repo store.Repository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// RegisterRoutes registers history routes. Callers wrap them in the auth
// middleware.
func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/history", h.handleAllHistory)
		r.Get("/history/{grammarID}", h.handleTopicHistory)
		r.Get("/history/{grammarID}/export", h.handleExport)
		r.Delete("/history/{grammarID}", h.handleDeleteHistory)
		r.Get("/messages/{messageID}", h.handleGetMessage)
		r.Post("/messages/{messageID}/engagement", h.handleEngagement)
		r.Get("/stats", h.handleStats)
	})
}

func (h *HistoryHandler) handleAllHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	page := api.ParsePage(r, historyPageSize, historyMaxPageSize)

	filter := domain.MessageFilter{
		Page:     page.Number,
		PageSize: page.Size,
		DateFrom: parseDate(r.URL.Query().Get("date_from")),
		DateTo:   parseDate(r.URL.Query().Get("date_to")),
	}
	if id, err := strconv.ParseInt(r.URL.Query().Get("grammar_id"), 10, 64); err == nil && id > 0 {
		filter.GrammarID = id
	}

	h.listMessages(w, r, user.ID, filter, page)
}

func (h *HistoryHandler) handleTopicHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	grammarID, ok := grammarIDParam(w, r)
	if !ok {
		return
	}

	page := api.ParsePage(r, historyPageSize, historyMaxPageSize)
	filter := domain.MessageFilter{
		GrammarID: grammarID,
		Page:      page.Number,
		PageSize:  page.Size,
		Search:    r.URL.Query().Get("search"),
	}
	switch r.URL.Query().Get("message_type") {
	case string(domain.MessageTypeText):
		filter.MessageType = domain.MessageTypeText
	case string(domain.MessageTypeAudio):
		filter.MessageType = domain.MessageTypeAudio
	}
	switch r.URL.Query().Get("sender_type") {
	case string(domain.SenderUser):
		filter.SenderType = domain.SenderUser
	case string(domain.SenderAI):
		filter.SenderType = domain.SenderAI
	}

	h.listMessages(w, r, user.ID, filter, page)
}

func (h *HistoryHandler) listMessages(w http.ResponseWriter, r *http.Request, userID int64, filter domain.MessageFilter, page api.Page) {
	messages, total, err := h.repo.ListMessages(r.Context(), userID, filter)
	if err != nil {
		slog.Error("Failed to list messages", "user_id", userID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}

	api.JSON(w, http.StatusOK, api.Paginated{
		Count:    total,
		Page:     page.Number,
		PageSize: page.Size,
		Results:  messages,
	})
}

func (h *HistoryHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	grammarID, ok := grammarIDParam(w, r)
	if !ok {
		return
	}

	g, err := h.repo.GetGrammar(r.Context(), grammarID)
	if err != nil {
		slog.Error("Failed to load grammar for export", "grammar_id", grammarID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to export chat history")
		return
	}
	if g == nil {
		api.Error(w, http.StatusNotFound, "grammar topic not found")
		return
	}

	messages, err := h.repo.ExportMessages(r.Context(), user.ID, grammarID)
	if err != nil {
		slog.Error("Failed to export messages", "user_id", user.ID, "grammar_id", grammarID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to export chat history")
		return
	}

	api.JSON(w, http.StatusOK, map[string]interface{}{
		"grammar_topic":  g.Title,
		"export_date":    time.Now().UTC().Format(time.RFC3339),
		"total_messages": len(messages),
		"messages":       messages,
	})
}

func (h *HistoryHandler) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	grammarID, ok := grammarIDParam(w, r)
	if !ok {
		return
	}

	g, err := h.repo.GetGrammar(r.Context(), grammarID)
	if err != nil {
		slog.Error("Failed to load grammar for delete", "grammar_id", grammarID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to delete chat history")
		return
	}
	if g == nil {
		api.Error(w, http.StatusNotFound, "grammar topic not found")
		return
	}

	deleted, err := h.repo.SoftDeleteMessages(r.Context(), user.ID, grammarID)
	if err != nil {
		slog.Error("Failed to delete messages", "user_id", user.ID, "grammar_id", grammarID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to delete chat history")
		return
	}

	api.JSON(w, http.StatusOK, map[string]interface{}{
		"message":          "Chat history deleted for grammar topic: " + g.Title,
		"messages_deleted": deleted,
	})
}

func (h *HistoryHandler) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	messageID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	if err != nil || messageID <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid message id")
		return
	}

	msg, err := h.repo.GetMessage(r.Context(), messageID, user.ID)
	if err != nil {
		slog.Error("Failed to load message", "message_id", messageID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load message")
		return
	}
	if msg == nil {
		api.Error(w, http.StatusNotFound, "message not found")
		return
	}

	api.JSON(w, http.StatusOK, msg)
}

func (h *HistoryHandler) handleEngagement(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	messageID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	if err != nil || messageID <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var payload struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var direction domain.FeedbackDirection
	switch payload.Action {
	case "thumb_up":
		direction = domain.FeedbackUp
	case "thumb_down":
		direction = domain.FeedbackDown
	default:
		api.Error(w, http.StatusBadRequest, "action must be thumb_up or thumb_down")
		return
	}

	found, err := h.repo.IncrementFeedbackByID(r.Context(), messageID, user.ID, direction)
	if err != nil {
		slog.Error("Failed to update engagement", "message_id", messageID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to update engagement")
		return
	}
	if !found {
		api.Error(w, http.StatusNotFound, "message not found")
		return
	}

	msg, err := h.repo.GetMessage(r.Context(), messageID, user.ID)
	if err != nil || msg == nil {
		api.JSON(w, http.StatusOK, map[string]string{"message": "engagement updated"})
		return
	}
	api.JSON(w, http.StatusOK, msg)
}

func (h *HistoryHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var grammarID int64
	if id, err := strconv.ParseInt(r.URL.Query().Get("grammar_id"), 10, 64); err == nil && id > 0 {
		grammarID = id
	}

	stats, err := h.repo.MessageStats(r.Context(), user.ID, grammarID)
	if err != nil {
		slog.Error("Failed to compute stats", "user_id", user.ID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}

	api.JSON(w, http.StatusOK, stats)
}

func grammarIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "grammarID"), 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid grammar id")
		return 0, false
	}
	return id, true
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	return time.Time{}
}
