package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/talkwise/talkwise/internal/api"
)

// Handler exposes the OTP login endpoints.
type Handler struct {
	otp *OTPService
}

// NewHandler creates the auth HTTP handler.
func NewHandler(otp *OTPService) *Handler {
	return &Handler{otp: otp}
}

// RegisterRoutes registers the public auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/otp", h.handleRequestCode)
		r.Post("/verify", h.handleVerify)
	})
}

func (h *Handler) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email, ok := normalizeEmail(payload.Email)
	if !ok {
		api.Error(w, http.StatusBadRequest, "invalid email address")
		return
	}

	if err := h.otp.RequestCode(r.Context(), email); err != nil {
		slog.Error("Failed to issue OTP", "email", email, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to generate code")
		return
	}

	api.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "A one-time code has been sent to your email address",
		"email":   email,
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email, ok := normalizeEmail(payload.Email)
	if !ok || payload.Code == "" {
		api.Error(w, http.StatusBadRequest, "email and code are required")
		return
	}

	user, tokens, err := h.otp.Redeem(r.Context(), email, payload.Code)
	if err != nil {
		if errors.Is(err, ErrInvalidOTP) {
			api.Error(w, http.StatusUnauthorized, "invalid or expired code")
			return
		}
		slog.Error("Failed to verify OTP", "email", email, "error", err)
		api.Error(w, http.StatusInternalServerError, "verification failed")
		return
	}

	api.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    user,
		"tokens":  tokens,
	})
}

func normalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", false
	}
	return email, true
}
