package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/chepyr/go-task-manager/internal/auth"
	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/logger"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginForm
	fields, err := decodeForm(w, r, &input)
	if err != nil {
		sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(fields) > 0 {
		sendValidationError(w, fields)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.Sessions.Authenticate(ctx, input.Username, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.WarnContext(r.Context(), "Login failed", "username", input.Username, "ip", clientIP(r))
			sendError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		sendInternalError(w, r, "Failed to authenticate", err)
		return
	}
	if err := h.Sessions.Establish(w, user); err != nil {
		sendInternalError(w, r, "Failed to establish session", err)
		return
	}
	logger.InfoContext(r.Context(), "User logged in", "user_id", user.ID)
	redirect(w, r, "/")
}

// Register creates the account and logs the new user in straight away.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var input registerForm
	fields, err := decodeForm(w, r, &input)
	if err != nil {
		sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(fields) > 0 {
		sendValidationError(w, fields)
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		sendInternalError(w, r, "Failed to hash password", err)
		return
	}
	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			sendValidationError(w, map[string]string{
				"username": "A user with that username already exists.",
			})
			return
		}
		sendInternalError(w, r, "Failed to create user", err)
		return
	}
	if err := h.Sessions.Establish(w, user); err != nil {
		sendInternalError(w, r, "Failed to establish session", err)
		return
	}
	logger.InfoContext(r.Context(), "User registered", "user_id", user.ID)
	redirect(w, r, "/")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Destroy(w)
	redirect(w, r, "/")
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request, user *models.User) {
	sendJSON(w, http.StatusOK, user)
}
