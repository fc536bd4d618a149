package handler

import (
	"log/slog"
	"net/http"

	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/model"
	"github.com/faucetdb/touchline/internal/service"
)

// AuthHandler issues bearer tokens.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Login checks a user id and secret and returns a token. Unknown ids and
// wrong secrets produce the same 401 response.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if req.UserID == 0 || req.Password == "" {
		writeServiceError(w, r, h.logger,
			&fieldmap.ValidationError{Reason: "user_id and user_password are required"})
		return
	}

	tok, err := h.auth.Login(r.Context(), req.UserID, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse(tok))
}

func tokenResponse(tok *service.Token) model.TokenResponse {
	return model.TokenResponse{
		AccessToken: tok.Raw,
		TokenType:   "bearer",
		ExpiresAt:   tok.ExpiresAt,
		UserID:      tok.UserID,
		UserName:    tok.Name,
		UserRight:   tok.Role,
	}
}
