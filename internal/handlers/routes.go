package handlers

import (
	"context"
	"net/http"
	"time"

	ws "taskchat/internal/websocket"
	"taskchat/pkg/logger"
)

// Pinger reports store reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes bundles everything mounted on the HTTP mux.
type Routes struct {
	Auth          *AuthHandlers
	Notifications *NotificationHandlers
	Messages      *MessageHandlers
	Tasks         *TaskHandlers
	WebSocket     *WebSocketHandlers

	Authenticator Authenticator
	Registry      *ws.Registry
	Store         Pinger
	Metrics       http.Handler
	CORSOrigin    string
}

func (rt *Routes) Handler() http.Handler {
	mux := http.NewServeMux()
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return RequireAuth(rt.Authenticator, h)
	}

	// Auth routes
	mux.HandleFunc("POST /auth/register", rt.Auth.Register)
	mux.HandleFunc("POST /auth/login", rt.Auth.Login)
	mux.HandleFunc("POST /auth/logout", rt.Auth.Logout)

	// Notification routes
	mux.HandleFunc("GET /notifications/unread", authed(rt.Notifications.Unread))
	mux.HandleFunc("PUT /notifications/read-all", authed(rt.Notifications.MarkAllRead))
	mux.HandleFunc("PUT /notifications/{id}/read", authed(rt.Notifications.MarkRead))

	// Message history routes
	mux.HandleFunc("GET /messages/channel/{id}", authed(rt.Messages.Channel))
	mux.HandleFunc("GET /messages/direct/{userId}", authed(rt.Messages.Direct))

	// Task routes
	mux.HandleFunc("GET /tasks", authed(rt.Tasks.List))
	mux.HandleFunc("POST /tasks", authed(rt.Tasks.Create))
	mux.HandleFunc("PUT /tasks/{id}", authed(rt.Tasks.Update))

	// WebSocket route
	mux.HandleFunc("GET /ws", rt.WebSocket.HandleWebSocket)

	mux.HandleFunc("GET /health", rt.health)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	return CORS(rt.CORSOrigin, mux)
}

func (rt *Routes) health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if rt.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.Store.Ping(ctx); err != nil {
			logger.Warn("Health check failed: %v", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}

	body := map[string]any{"status": status}
	if rt.Registry != nil {
		body["users"] = rt.Registry.UserCount()
		body["connections"] = len(rt.Registry.Clients())
	}
	writeJSON(w, code, body)
}

// Endpoints lists the mounted routes for the startup banner.
func Endpoints() []string {
	return []string{
		"POST /auth/register",
		"POST /auth/login",
		"POST /auth/logout",
		"GET  /notifications/unread",
		"PUT  /notifications/{id}/read",
		"PUT  /notifications/read-all",
		"GET  /messages/channel/{id}",
		"GET  /messages/direct/{userId}",
		"GET  /tasks",
		"POST /tasks",
		"PUT  /tasks/{id}",
		"GET  /ws",
		"GET  /health",
		"GET  /metrics",
	}
}
