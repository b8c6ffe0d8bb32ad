package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/homebase/internal/apperr"
	"github.com/dukerupert/homebase/internal/auth"
	"github.com/dukerupert/homebase/internal/store"
)

type AuthHandler struct {
	store  store.Store
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

func NewAuthHandler(st store.Store, tokens *auth.TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{store: st, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateRequest(req); err != nil {
		apperr.Write(w, err)
		return
	}

	row, err := h.store.FindFirst(r.Context(), store.ModelUser, store.Query{Where: store.Where{"email": req.Email}})
	if errors.Is(err, store.ErrNotFound) {
		apperr.Write(w, apperr.Auth("invalid email or password"))
		return
	}
	if err != nil {
		h.logger.Error("load user for login", "error", err)
		apperr.Write(w, err)
		return
	}

	user := store.UserFromRow(row)
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		apperr.Write(w, apperr.Auth("invalid email or password"))
		return
	}

	token, expires, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		apperr.Write(w, err)
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, UserID: user.ID})
}
