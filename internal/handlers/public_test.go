package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
)

func TestPublicTasks(t *testing.T) {
	env := setupHTTP(t)
	alice := env.createUser(t, "alice", false)
	bob := env.createUser(t, "bob", false)

	errandLow := env.createTask(t, bob, "errand low", int64p(tagErrand), int64p(priorityLow), models.VisibilityPublic, false)
	workLowDone := env.createTask(t, bob, "work low done", int64p(tagWork), int64p(priorityLow), models.VisibilityPublic, true)
	errandHigh := env.createTask(t, bob, "errand high", int64p(tagErrand), int64p(priorityHi), models.VisibilityPublic, false)
	env.createTask(t, bob, "private errand low", int64p(tagErrand), int64p(priorityLow), models.VisibilityPrivate, false)
	env.createTask(t, alice, "alice public", int64p(tagErrand), int64p(priorityLow), models.VisibilityPublic, false)

	tests := []struct {
		name  string
		user  *models.User
		query string
		want  []*models.Task
	}{
		{"no filters", alice, "", []*models.Task{errandLow, workLowDone, errandHigh}},
		{"priority only", alice, "?priority=1", []*models.Task{errandLow, workLowDone}},
		{"tag only", alice, "?tag=1", []*models.Task{errandLow, errandHigh}},
		{"priority and tag", alice, "?priority=1&tag=1", []*models.Task{errandLow}},
		{"anonymous viewer", nil, "", []*models.Task{errandLow, workLowDone, errandHigh}},
		{"owner sees only public ones", bob, "", []*models.Task{errandLow, workLowDone, errandHigh}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/users/"+bob.ID.String()+"/tasks"+tt.query, nil, tt.user)
			expectStatus(t, rec, http.StatusOK)
			body := decodeBody[listBody](t, rec)
			if !sameIDs(body.Tasks, tt.want...) {
				t.Errorf("got %v, want %d tasks", taskIDs(body.Tasks), len(tt.want))
			}
			for _, task := range body.Tasks {
				if !task.IsPublic() || task.UserID != bob.ID {
					t.Errorf("listing leaked task %+v", task)
				}
			}
			if body.User.ID != bob.ID || body.User.Username != "bob" {
				t.Errorf("unexpected profile %+v", body.User)
			}
		})
	}
}

func TestPublicTasks_ProfileIsPublicOnly(t *testing.T) {
	env := setupHTTP(t)
	bob := env.createUser(t, "bob", true)

	rec := env.do(t, http.MethodGet, "/users/"+bob.ID.String()+"/tasks", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	if strings.Contains(body, "bob@example.com") || strings.Contains(body, "is_staff") {
		t.Errorf("public listing exposes private profile fields: %s", body)
	}
	if !strings.Contains(body, `"tasks":[]`) {
		t.Errorf("expected an empty task list, got %s", body)
	}
}

func TestPublicTasks_Errors(t *testing.T) {
	env := setupHTTP(t)
	bob := env.createUser(t, "bob", false)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown user", "/users/" + uuid.NewString() + "/tasks", http.StatusNotFound},
		{"malformed user id", "/users/bob/tasks", http.StatusNotFound},
		{"bad filter", "/users/" + bob.ID.String() + "/tasks?tag=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, nil, nil)
			expectStatus(t, rec, tt.status)
		})
	}
}
