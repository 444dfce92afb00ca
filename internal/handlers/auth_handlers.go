package handlers

import (
	"net/http"

	"taskchat/internal/auth"
	"taskchat/internal/models"
	"taskchat/pkg/logger"
)

type AuthHandlers struct {
	authService *auth.Service
}

func NewAuthHandlers(authService *auth.Service) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	response, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		logger.Warn("Registration error: %v", err)
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, h.authService.SessionCookie(response.Token))
	writeJSON(w, http.StatusCreated, response)
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	response, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		logger.Warn("Login error: %v", err)
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, h.authService.SessionCookie(response.Token))
	writeJSON(w, http.StatusOK, response)
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.authService.ClearedCookie())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
