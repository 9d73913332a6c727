package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/filter"
	"github.com/chepyr/go-task-manager/internal/logger"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
)

const recentTasksLimit = 3

type taskListResponse struct {
	User   models.PublicProfile `json:"user"`
	Filter filter.Criteria      `json:"filter"`
	Tasks  []*models.Task       `json:"tasks"`
}

type taskResponse struct {
	Task    *models.Task `json:"task"`
	CanEdit bool         `json:"can_edit"`
}

type editFormResponse struct {
	Task    *models.Task `json:"task"`
	Choices formChoices  `json:"choices"`
}

var anonymousResponse = map[string]bool{"anonymous": true}

// Home shows the requester's active tasks together with the most recently
// created ones.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request, user *models.User) {
	if user == nil {
		sendJSON(w, http.StatusOK, anonymousResponse)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tasks, err := h.Tasks.ListByUser(ctx, user.ID, false)
	if err != nil {
		sendInternalError(w, r, "Failed to list tasks", err)
		return
	}
	recent, err := h.Tasks.ListRecentActive(ctx, user.ID, recentTasksLimit)
	if err != nil {
		sendInternalError(w, r, "Failed to list recent tasks", err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{
		"user":   user.Public(),
		"tasks":  tasks,
		"recent": recent,
	})
}

// ListTasks returns the requester's active tasks, optionally narrowed by
// the priority and tag query parameters.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request, user *models.User) {
	criteria, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if user == nil {
		sendJSON(w, http.StatusOK, anonymousResponse)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	tasks, err := h.Tasks.ListByUser(ctx, user.ID, false)
	if err != nil {
		sendInternalError(w, r, "Failed to list tasks", err)
		return
	}
	sendJSON(w, http.StatusOK, taskListResponse{
		User:   user.Public(),
		Filter: criteria,
		Tasks:  filter.Apply(tasks, criteria),
	})
}

func (h *Handler) CompletedTasks(w http.ResponseWriter, r *http.Request, user *models.User) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tasks, err := h.Tasks.ListByUser(ctx, user.ID, true)
	if err != nil {
		sendInternalError(w, r, "Failed to list completed tasks", err)
		return
	}
	sendJSON(w, http.StatusOK, taskListResponse{User: user.Public(), Tasks: tasks})
}

func (h *Handler) NewTaskForm(w http.ResponseWriter, r *http.Request, user *models.User) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	choices, err := h.formChoices(ctx)
	if err != nil {
		sendInternalError(w, r, "Failed to load form choices", err)
		return
	}
	sendJSON(w, http.StatusOK, choices)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	var input taskForm
	fields, err := decodeForm(w, r, &input)
	if err != nil {
		sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(fields) > 0 {
		sendValidationError(w, fields)
		return
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New(),
		UserID:      user.ID,
		TagID:       input.TagID,
		PriorityID:  input.PriorityID,
		Title:       input.Title,
		Description: input.Description,
		Completed:   false,
		Visibility:  input.visibility(models.VisibilityPrivate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := h.Tasks.Create(ctx, task); err != nil {
		if errors.Is(err, db.ErrInvalidReference) {
			sendError(w, "unknown tag or priority", http.StatusBadRequest)
			return
		}
		sendInternalError(w, r, "Failed to create task", err)
		return
	}
	logger.InfoContext(r.Context(), "Task created", "task_id", task.ID, "user_id", user.ID)
	h.WSHub.Broadcast(EventTaskCreated, task)
	redirect(w, r, "/tasks")
}

// TaskDetail shows a single task to its owner, to staff, and to everybody
// else when the task is public.
func (h *Handler) TaskDetail(w http.ResponseWriter, r *http.Request, user *models.User) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, ok := h.loadTask(ctx, w, r)
	if !ok {
		return
	}
	canEdit := user.CanEdit(task)
	if !canEdit && !task.IsPublic() {
		sendError(w, "Forbidden", http.StatusForbidden)
		return
	}
	sendJSON(w, http.StatusOK, taskResponse{Task: task, CanEdit: canEdit})
}

func (h *Handler) EditTaskForm(w http.ResponseWriter, r *http.Request, user *models.User) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, ok := h.loadEditableTask(ctx, w, r, user)
	if !ok {
		return
	}
	choices, err := h.formChoices(ctx)
	if err != nil {
		sendInternalError(w, r, "Failed to load form choices", err)
		return
	}
	sendJSON(w, http.StatusOK, editFormResponse{Task: task, Choices: choices})
}

// EditTask applies title, description, priority and visibility. The
// submitted tag is accepted but not applied to the task.
func (h *Handler) EditTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, ok := h.loadEditableTask(ctx, w, r, user)
	if !ok {
		return
	}

	var input taskForm
	fields, err := decodeForm(w, r, &input)
	if err != nil {
		sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(fields) > 0 {
		sendValidationError(w, fields)
		return
	}

	task.Title = input.Title
	task.Description = input.Description
	task.PriorityID = input.PriorityID
	task.Visibility = input.visibility(task.Visibility)
	task.UpdatedAt = time.Now().UTC()

	if err := h.Tasks.Update(ctx, task); err != nil {
		switch {
		case errors.Is(err, db.ErrInvalidReference):
			sendValidationError(w, map[string]string{"priority": "Select a valid choice."})
		case isNotFound(err):
			sendError(w, "Task not found", http.StatusNotFound)
		default:
			sendInternalError(w, r, "Failed to update task", err)
		}
		return
	}
	logger.InfoContext(r.Context(), "Task updated", "task_id", task.ID, "user_id", user.ID)
	h.WSHub.Broadcast(EventTaskUpdated, task)
	redirect(w, r, "/tasks")
}

// CompleteTask and RestoreTask toggle the completed flag of any task and
// send the client back to where it came from.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.setCompleted(w, r, true)
}

func (h *Handler) RestoreTask(w http.ResponseWriter, r *http.Request) {
	h.setCompleted(w, r, false)
}

func (h *Handler) setCompleted(w http.ResponseWriter, r *http.Request, completed bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, ok := h.loadTask(ctx, w, r)
	if !ok {
		return
	}
	if err := h.Tasks.SetCompleted(ctx, task.ID, completed); err != nil {
		if isNotFound(err) {
			sendError(w, "Task not found", http.StatusNotFound)
			return
		}
		sendInternalError(w, r, "Failed to update task", err)
		return
	}
	task.Completed = completed

	event := EventTaskRestored
	if completed {
		event = EventTaskCompleted
	}
	h.WSHub.Broadcast(event, task)

	target := r.Referer()
	if target == "" {
		target = "/tasks"
	}
	redirect(w, r, target)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, ok := h.loadTask(ctx, w, r)
	if !ok {
		return
	}
	if err := h.Tasks.Delete(ctx, task.ID); err != nil {
		if isNotFound(err) {
			sendError(w, "Task not found", http.StatusNotFound)
			return
		}
		sendInternalError(w, r, "Failed to delete task", err)
		return
	}
	logger.InfoContext(r.Context(), "Task deleted", "task_id", task.ID)
	h.WSHub.Broadcast(EventTaskDeleted, task)
	redirect(w, r, "/tasks/completed")
}

// loadTask fetches the task named by the {id} path segment and writes the
// error response itself when that fails.
func (h *Handler) loadTask(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.Task, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		sendError(w, "Task not found", http.StatusNotFound)
		return nil, false
	}
	task, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			sendError(w, "Task not found", http.StatusNotFound)
		} else {
			sendInternalError(w, r, "Failed to load task", err)
		}
		return nil, false
	}
	return task, true
}

// loadEditableTask is loadTask plus the owner or staff check.
func (h *Handler) loadEditableTask(ctx context.Context, w http.ResponseWriter, r *http.Request, user *models.User) (*models.Task, bool) {
	task, ok := h.loadTask(ctx, w, r)
	if !ok {
		return nil, false
	}
	if !user.CanEdit(task) {
		logger.WarnContext(r.Context(), "Edit denied", "task_id", task.ID, "user_id", user.ID)
		sendError(w, "You do not have permission to edit this task", http.StatusForbidden)
		return nil, false
	}
	return task, true
}

func (h *Handler) formChoices(ctx context.Context) (formChoices, error) {
	tags, err := h.Tags.List(ctx)
	if err != nil {
		return formChoices{}, err
	}
	priorities, err := h.Priorities.List(ctx)
	if err != nil {
		return formChoices{}, err
	}
	return formChoices{Tags: tags, Priorities: priorities, Visibilities: visibilityChoices}, nil
}
