package handlers

import (
	"context"
	"net/http"

	"github.com/chepyr/go-task-manager/internal/filter"
	"github.com/google/uuid"
)

// PublicTasks lists another user's public tasks, completed or not, with the
// same priority and tag filters as the owner's own listing.
func (h *Handler) PublicTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		sendError(w, "User not found", http.StatusNotFound)
		return
	}
	criteria, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	owner, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			sendError(w, "User not found", http.StatusNotFound)
			return
		}
		sendInternalError(w, r, "Failed to load user", err)
		return
	}
	tasks, err := h.Tasks.ListPublicByUser(ctx, owner.ID)
	if err != nil {
		sendInternalError(w, r, "Failed to list public tasks", err)
		return
	}
	sendJSON(w, http.StatusOK, taskListResponse{
		User:   owner.Public(),
		Filter: criteria,
		Tasks:  filter.Apply(tasks, criteria),
	})
}
