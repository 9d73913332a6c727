package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chepyr/go-task-manager/internal/logger"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	EventTaskCreated   = "task_created"
	EventTaskUpdated   = "task_updated"
	EventTaskCompleted = "task_completed"
	EventTaskRestored  = "task_restored"
	EventTaskDeleted   = "task_deleted"

	wsWriteTimeout = 5 * time.Second
)

// WSHub fans task events out to the owner's open websocket connections.
type WSHub struct {
	connections    map[uuid.UUID]map[*websocket.Conn]bool
	allowedOrigins []string
	mutex          sync.Mutex
}

// NewWSHub returns a hub accepting connections from allowedOrigins. An empty
// list accepts any origin.
func NewWSHub(allowedOrigins ...string) *WSHub {
	return &WSHub{
		connections:    make(map[uuid.UUID]map[*websocket.Conn]bool),
		allowedOrigins: allowedOrigins,
	}
}

type taskEvent struct {
	Event string       `json:"event"`
	Task  *models.Task `json:"task"`
}

// Broadcast sends event for task to every connection of the task owner.
// Connections that fail to accept the message are dropped.
func (hub *WSHub) Broadcast(event string, task *models.Task) {
	if hub == nil {
		return
	}
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	conns, exists := hub.connections[task.UserID]
	if !exists {
		return
	}
	message, err := json.Marshal(taskEvent{Event: event, Task: task})
	if err != nil {
		logger.Error("Failed to marshal task event", "error", err)
		return
	}
	for conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Warn("Failed to send websocket message", "error", err, "user_id", task.UserID)
			delete(conns, conn)
			conn.Close()
		}
	}
	if len(conns) == 0 {
		delete(hub.connections, task.UserID)
	}
}

func (hub *WSHub) register(userID uuid.UUID, conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	if hub.connections[userID] == nil {
		hub.connections[userID] = make(map[*websocket.Conn]bool)
	}
	hub.connections[userID][conn] = true
}

func (hub *WSHub) unregister(userID uuid.UUID, conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	if conns, ok := hub.connections[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(hub.connections, userID)
		}
	}
}

func (hub *WSHub) connectionCount(userID uuid.UUID) int {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return len(hub.connections[userID])
}

// checkOrigin accepts requests without an Origin header (non browser
// clients) and, when a list is configured, only the listed origins.
func (hub *WSHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(hub.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range hub.allowedOrigins {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}

// HandleWebSocket upgrades the request and keeps the connection registered
// until the client goes away. Incoming messages are ignored.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, user *models.User) {
	upgrader := websocket.Upgrader{CheckOrigin: h.WSHub.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logger.WarnContext(r.Context(), "WebSocket upgrade failed", "error", err)
		return
	}
	h.WSHub.register(user.ID, conn)
	logger.InfoContext(r.Context(), "WebSocket connected", "user_id", user.ID)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.WSHub.unregister(user.ID, conn)
			conn.Close()
			logger.InfoContext(r.Context(), "WebSocket disconnected", "user_id", user.ID)
			return
		}
	}
}
