package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
)

func int64Ptr(v int64) *int64 { return &v }

func newTask(owner uuid.UUID, title string, createdAt time.Time) *models.Task {
	return &models.Task{
		ID:          uuid.New(),
		UserID:      owner,
		Title:       title,
		Description: "desc",
		Visibility:  models.VisibilityPrivate,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestTaskRepository_Create_Get_Update_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := insertUser(t, db, "alice")
	if err := NewTagRepository(db).Create(ctx, &models.Tag{ID: 1, Name: "errand"}); err != nil {
		t.Fatalf("create tag: %v", err)
	}

	task := newTask(owner.ID, "First task", time.Now().UTC())
	task.TagID = int64Ptr(1)
	task.PriorityID = int64Ptr(2)
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("TaskRepository.Create: %v", err)
	}

	got, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("TaskRepository.GetByID: %v", err)
	}
	if got.UserID != owner.ID || got.Title != "First task" || got.Completed {
		t.Errorf("GetByID mismatch: %#v", got)
	}
	if got.TagID == nil || *got.TagID != 1 || got.PriorityID == nil || *got.PriorityID != 2 {
		t.Errorf("GetByID lost references: tag=%v priority=%v", got.TagID, got.PriorityID)
	}

	got.Title = "Updated"
	got.Visibility = models.VisibilityPublic
	got.PriorityID = nil
	got.UpdatedAt = time.Now().UTC()
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("TaskRepository.Update: %v", err)
	}
	after, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if after.Title != "Updated" || !after.IsPublic() || after.PriorityID != nil {
		t.Errorf("Update not applied: %#v", after)
	}

	if err := repo.Delete(ctx, task.ID); err != nil {
		t.Fatalf("TaskRepository.Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTaskRepository_Create_InvalidReferences(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	owner := insertUser(t, db, "alice")

	tests := []struct {
		name   string
		mutate func(*models.Task)
	}{
		{"unknown owner", func(task *models.Task) { task.UserID = uuid.New() }},
		{"unknown tag", func(task *models.Task) { task.TagID = int64Ptr(99) }},
		{"unknown priority", func(task *models.Task) { task.PriorityID = int64Ptr(99) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTask(owner.ID, "Orphan", time.Now().UTC())
			tt.mutate(task)
			err := repo.Create(context.Background(), task)
			if !errors.Is(err, ErrInvalidReference) {
				t.Fatalf("expected ErrInvalidReference, got %v", err)
			}
		})
	}
}

func TestTaskRepository_SetCompleted_OnlyTouchesFlag(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	owner := insertUser(t, db, "alice")

	task := newTask(owner.ID, "Flip me", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	task.PriorityID = int64Ptr(1)
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _ := repo.GetByID(ctx, task.ID)

	if err := repo.SetCompleted(ctx, task.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	done, _ := repo.GetByID(ctx, task.ID)
	if !done.Completed {
		t.Fatal("expected completed task")
	}
	if err := repo.SetCompleted(ctx, task.ID, false); err != nil {
		t.Fatalf("restore: %v", err)
	}
	after, _ := repo.GetByID(ctx, task.ID)

	if after.Completed || after.Title != before.Title || after.Description != before.Description ||
		after.UserID != before.UserID || *after.PriorityID != *before.PriorityID ||
		after.Visibility != before.Visibility || !after.CreatedAt.Equal(before.CreatedAt) ||
		!after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("round trip changed task: before=%#v after=%#v", before, after)
	}
}

func TestTaskRepository_NonExistent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	id := uuid.New()

	if _, err := repo.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID: expected ErrNotFound, got %v", err)
	}
	if err := repo.SetCompleted(ctx, id, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetCompleted: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
	if err := repo.Update(ctx, newTask(uuid.New(), "nope", time.Now().UTC())); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
}

func TestTaskRepository_Listings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	alice := insertUser(t, db, "alice")
	bob := insertUser(t, db, "bob")

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var aliceActive []*models.Task
	for i, title := range []string{"a1", "a2", "a3", "a4"} {
		task := newTask(alice.ID, title, base.Add(time.Duration(i)*time.Hour))
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		aliceActive = append(aliceActive, task)
	}
	done := newTask(alice.ID, "done", base.Add(10*time.Hour))
	done.Completed = true
	donePublic := newTask(bob.ID, "bob done public", base)
	donePublic.Completed = true
	donePublic.Visibility = models.VisibilityPublic
	bobPrivate := newTask(bob.ID, "bob private", base)
	bobPublic := newTask(bob.ID, "bob public", base.Add(time.Hour))
	bobPublic.Visibility = models.VisibilityPublic
	for _, task := range []*models.Task{done, donePublic, bobPrivate, bobPublic} {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create %s: %v", task.Title, err)
		}
	}

	active, err := repo.ListByUser(ctx, alice.ID, false)
	if err != nil {
		t.Fatalf("ListByUser active: %v", err)
	}
	if len(active) != 4 || active[0].Title != "a1" || active[3].Title != "a4" {
		t.Errorf("unexpected active list: %+v", titles(active))
	}

	completed, err := repo.ListByUser(ctx, alice.ID, true)
	if err != nil {
		t.Fatalf("ListByUser completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != done.ID {
		t.Errorf("unexpected completed list: %+v", titles(completed))
	}

	recent, err := repo.ListRecentActive(ctx, alice.ID, 3)
	if err != nil {
		t.Fatalf("ListRecentActive: %v", err)
	}
	if got := titles(recent); len(got) != 3 || got[0] != "a4" || got[1] != "a3" || got[2] != "a2" {
		t.Errorf("unexpected recent list: %v", got)
	}

	public, err := repo.ListPublicByUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListPublicByUser: %v", err)
	}
	if got := titles(public); len(got) != 2 || got[0] != "bob done public" || got[1] != "bob public" {
		t.Errorf("unexpected public list: %v", got)
	}

	empty, err := repo.ListByUser(ctx, uuid.New(), false)
	if err != nil {
		t.Fatalf("ListByUser unknown: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty list, got %v", titles(empty))
	}
}

func titles(tasks []*models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}
