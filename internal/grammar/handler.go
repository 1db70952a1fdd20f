package grammar

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/talkwise/talkwise/internal/api"
	"github.com/talkwise/talkwise/internal/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Handler serves the read-only grammar and expression catalogs.
type Handler struct {
	repo store.Repository
}

// NewHandler creates the catalog HTTP handler.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers the catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/grammars", h.handleListGrammars)
	r.Get("/api/grammars/{grammarID}", h.handleGetGrammar)
	r.Get("/api/expressions", h.handleListExpressions)
	r.Get("/api/expressions/{expressionID}", h.handleGetExpression)
}

func (h *Handler) handleListGrammars(w http.ResponseWriter, r *http.Request) {
	page := api.ParsePage(r, defaultPageSize, maxPageSize)

	grammars, total, err := h.repo.ListGrammars(r.Context(), page.Number, page.Size)
	if err != nil {
		slog.Error("Failed to list grammars", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to list grammar topics")
		return
	}

	api.JSON(w, http.StatusOK, api.Paginated{
		Count:    total,
		Page:     page.Number,
		PageSize: page.Size,
		Results:  grammars,
	})
}

func (h *Handler) handleGetGrammar(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "grammarID"), 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid grammar id")
		return
	}

	g, err := h.repo.GetGrammar(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load grammar", "grammar_id", id, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load grammar topic")
		return
	}
	if g == nil {
		api.Error(w, http.StatusNotFound, "grammar topic not found")
		return
	}

	api.JSON(w, http.StatusOK, g)
}

func (h *Handler) handleListExpressions(w http.ResponseWriter, r *http.Request) {
	page := api.ParsePage(r, defaultPageSize, maxPageSize)

	expressions, total, err := h.repo.ListExpressions(r.Context(), page.Number, page.Size)
	if err != nil {
		slog.Error("Failed to list expressions", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to list expressions")
		return
	}

	api.JSON(w, http.StatusOK, api.Paginated{
		Count:    total,
		Page:     page.Number,
		PageSize: page.Size,
		Results:  expressions,
	})
}

func (h *Handler) handleGetExpression(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "expressionID"), 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid expression id")
		return
	}

	e, err := h.repo.GetExpression(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load expression", "expression_id", id, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load expression")
		return
	}
	if e == nil {
		api.Error(w, http.StatusNotFound, "expression not found")
		return
	}

	api.JSON(w, http.StatusOK, e)
}
