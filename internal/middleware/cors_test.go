package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsHandler(origins []string) http.Handler {
	return CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		allowed         []string
		origin          string
		wantAllowOrigin string
		wantCredentials string
	}{
		{"wildcard echoes origin", []string{"*"}, "https://anywhere.example.com", "https://anywhere.example.com", ""},
		{"explicit origin allowed", []string{"https://app.example.com"}, "https://app.example.com", "https://app.example.com", "true"},
		{"foreign origin denied", []string{"https://app.example.com"}, "https://evil.example.com", "", ""},
		{"no origin header", []string{"https://app.example.com"}, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()

			corsHandler(tt.allowed).ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("Expected Allow-Origin %q, got %q", tt.wantAllowOrigin, got)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCredentials {
				t.Errorf("Expected Allow-Credentials %q, got %q", tt.wantCredentials, got)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/api/chat/history", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()

	var reached bool
	CORS([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected preflight 200, got %d", w.Code)
	}
	if reached {
		t.Error("Preflight must short-circuit before the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Errorf("Unexpected allowed headers: %q", got)
	}
}
