package handlers

import (
	"net/http"
	"net/url"
	"time"

	"taskchat/internal/config"
	"taskchat/internal/metrics"
	"taskchat/internal/models"
	ws "taskchat/internal/websocket"
	"taskchat/pkg/logger"

	"github.com/gorilla/websocket"
)

// TokenVerifier turns a session token into an identity.
type TokenVerifier interface {
	VerifyToken(token string) (models.Identity, error)
}

// WebSocketHandlers authenticates upgrade requests and hands accepted
// connections to the registry.
type WebSocketHandlers struct {
	verifier   TokenVerifier
	registry   *ws.Registry
	router     ws.FrameHandler
	cookieName string
	realtime   config.RealtimeConfig
	upgrader   websocket.Upgrader
}

func NewWebSocketHandlers(verifier TokenVerifier, registry *ws.Registry, router ws.FrameHandler, cookieName, allowedOrigin string, realtime config.RealtimeConfig) *WebSocketHandlers {
	if cookieName == "" {
		cookieName = "token"
	}
	return &WebSocketHandlers{
		verifier:   verifier,
		registry:   registry,
		router:     router,
		cookieName: cookieName,
		realtime:   realtime,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigin),
		},
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get JWT token from the session cookie
	cookie, err := r.Cookie(h.cookieName)
	if err != nil || cookie.Value == "" {
		metrics.RejectedUpgrades.WithLabelValues("missing_token").Inc()
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	identity, err := h.verifier.VerifyToken(cookie.Value)
	if err != nil {
		logger.Warn("WebSocket authentication failed: %v", err)
		metrics.RejectedUpgrades.WithLabelValues("invalid_token").Inc()
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		metrics.RejectedUpgrades.WithLabelValues("upgrade_failed").Inc()
		return
	}

	if !identity.Valid() {
		metrics.RejectedUpgrades.WithLabelValues("no_user_id").Inc()
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "No user ID found")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}

	client := ws.NewClient(h.registry, conn, identity, h.realtime)
	h.registry.Register(client)

	go client.Run(h.router)
}

// checkOrigin accepts same-host requests, requests without an Origin
// header, and the configured frontend origin.
func checkOrigin(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed == "*" || origin == allowed {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	}
}
