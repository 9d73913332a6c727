// Package handlers implements the HTTP surface of the task manager.
// Handlers that care about the requester receive it as an explicit
// *models.User argument; nil means anonymous.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chepyr/go-task-manager/internal/auth"
	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/logger"
	"github.com/chepyr/go-task-manager/internal/models"
)

const requestTimeout = 5 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	Users      db.UserRepositoryInterface
	Tasks      db.TaskRepositoryInterface
	Tags       db.TagRepositoryInterface
	Priorities db.PriorityRepositoryInterface
	Sessions   auth.SessionProvider
	DB         Pinger

	// RateLimiter guards login and registration, WSLimiter websocket
	// connection attempts. A nil limiter allows everything.
	RateLimiter *RateLimiter
	WSLimiter   *RateLimiter
	WSHub       *WSHub
}

type userHandlerFunc func(w http.ResponseWriter, r *http.Request, user *models.User)

// Routes registers every endpoint and wraps the mux in the request id and
// logging middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.withUser(h.Home))
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("GET /tasks", h.withUser(h.ListTasks))
	mux.HandleFunc("POST /tasks", h.requireUser(h.CreateTask))
	mux.HandleFunc("GET /tasks/new", h.requireUser(h.NewTaskForm))
	mux.HandleFunc("GET /tasks/completed", h.requireUser(h.CompletedTasks))
	mux.HandleFunc("GET /tasks/{id}", h.withUser(h.TaskDetail))
	mux.HandleFunc("GET /tasks/{id}/edit", h.requireUser(h.EditTaskForm))
	mux.HandleFunc("POST /tasks/{id}/edit", h.requireUser(h.EditTask))
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		mux.HandleFunc(method+" /tasks/{id}/complete", h.CompleteTask)
		mux.HandleFunc(method+" /tasks/{id}/restore", h.RestoreTask)
		mux.HandleFunc(method+" /tasks/{id}/delete", h.DeleteTask)
		mux.HandleFunc(method+" /logout", h.Logout)
	}
	mux.HandleFunc("GET /users/{id}/tasks", h.PublicTasks)

	mux.HandleFunc("GET /tags", h.ListTags)
	mux.HandleFunc("POST /tags", h.requireUser(h.CreateTag))
	mux.HandleFunc("GET /priorities", h.ListPriorities)

	mux.HandleFunc("POST /login", h.rateLimited(h.RateLimiter, h.Login))
	mux.HandleFunc("POST /register", h.rateLimited(h.RateLimiter, h.Register))
	mux.HandleFunc("GET /profile", h.requireUser(h.Profile))

	mux.HandleFunc("GET /ws", h.rateLimited(h.WSLimiter, h.requireUser(h.HandleWebSocket)))

	return RequestID(RequestLogger(mux))
}

// Health reports whether the database answers a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			logger.ErrorContext(r.Context(), "Health check failed", "error", err)
			sendJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, errorResponse{Error: message})
}

func sendValidationError(w http.ResponseWriter, fields map[string]string) {
	sendJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Fields: fields})
}

// sendInternalError logs err and hides it from the client.
func sendInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.ErrorContext(r.Context(), msg, "error", err, "path", r.URL.Path)
	sendError(w, "Internal server error", http.StatusInternalServerError)
}

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(strings.ToLower(ct), "application/json")
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound)
}
