package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/logger"
	"github.com/chepyr/go-task-manager/internal/models"
)

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tags, err := h.Tags.List(ctx)
	if err != nil {
		sendInternalError(w, r, "Failed to list tags", err)
		return
	}
	sendJSON(w, http.StatusOK, tags)
}

// CreateTag is restricted to staff. The id is chosen by the caller.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !user.IsStaff {
		sendError(w, "Forbidden", http.StatusForbidden)
		return
	}
	var input tagForm
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

	tag := &models.Tag{ID: input.ID, Name: input.Name}
	if err := h.Tags.Create(ctx, tag); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			sendValidationError(w, map[string]string{"id": "Tag with this id already exists."})
			return
		}
		sendInternalError(w, r, "Failed to create tag", err)
		return
	}
	logger.InfoContext(r.Context(), "Tag created", "tag_id", tag.ID, "user_id", user.ID)
	w.Header().Set("Location", "/tags")
	sendJSON(w, http.StatusCreated, tag)
}

func (h *Handler) ListPriorities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	priorities, err := h.Priorities.List(ctx)
	if err != nil {
		sendInternalError(w, r, "Failed to list priorities", err)
		return
	}
	sendJSON(w, http.StatusOK, priorities)
}
