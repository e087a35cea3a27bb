package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/OPSDECK/opsdeck/internal/auth"
)

// AuthHandlers serves operator login and token validation.
type AuthHandlers struct {
	config auth.Config
	logger *slog.Logger
}

// NewAuthHandlers creates auth handlers.
func NewAuthHandlers(config auth.Config, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{config: config, logger: logger}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !h.config.CheckAdminPassword(req.Password) {
		h.logger.Warn("failed login attempt", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken("admin", h.config.JWTSecret, h.config.TokenDuration)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// Validate handles GET /api/auth/validate.
func (h *AuthHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	header := r.Header.Get("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	userID, err := auth.ValidateToken(parts[1], h.config.JWTSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "user_id": userID})
}
