package db

import (
	"context"
	"database/sql"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
)

// defines methods for task db operations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, completed bool) ([]*models.Task, error)
	ListRecentActive(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error)
	ListPublicByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
}

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, tag_id, priority_id, title, description,
 completed, visibility, created_at, updated_at`

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(
		ctx, query, task.ID, task.UserID, task.TagID, task.PriorityID, task.Title,
		task.Description, task.Completed, task.Visibility, task.CreatedAt, task.UpdatedAt)
	return translateError(err)
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task := &models.Task{}
	if err := scanTask(r.db.QueryRowContext(ctx, query, id), task); err != nil {
		return nil, translateError(err)
	}
	return task, nil
}

// Update writes every editable column. The owner is never changed.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `UPDATE tasks SET tag_id = $1, priority_id = $2, title = $3, description = $4,
	 completed = $5, visibility = $6, updated_at = $7 WHERE id = $8`
	res, err := r.db.ExecContext(
		ctx, query, task.TagID, task.PriorityID, task.Title, task.Description,
		task.Completed, task.Visibility, task.UpdatedAt, task.ID)
	if err != nil {
		return translateError(err)
	}
	return checkAffected(res)
}

// SetCompleted flips only the completed flag.
func (r *TaskRepository) SetCompleted(ctx context.Context, id uuid.UUID, completed bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET completed = $1 WHERE id = $2`, completed, id)
	if err != nil {
		return translateError(err)
	}
	return checkAffected(res)
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return translateError(err)
	}
	return checkAffected(res)
}

// ListByUser returns the user's active or completed tasks in creation order.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID, completed bool) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
	 WHERE user_id = $1 AND completed = $2 ORDER BY created_at, id`
	return r.list(ctx, query, userID, completed)
}

// ListRecentActive returns up to limit active tasks, newest first.
func (r *TaskRepository) ListRecentActive(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
	 WHERE user_id = $1 AND completed = $2 ORDER BY created_at DESC, id LIMIT $3`
	return r.list(ctx, query, userID, false, limit)
}

// ListPublicByUser returns every public task of the user, completed or not.
func (r *TaskRepository) ListPublicByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
	 WHERE user_id = $1 AND visibility = $2 ORDER BY created_at, id`
	return r.list(ctx, query, userID, models.VisibilityPublic)
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task := &models.Task{}
		if err := scanTask(rows, task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner, task *models.Task) error {
	return row.Scan(
		&task.ID, &task.UserID, &task.TagID, &task.PriorityID, &task.Title,
		&task.Description, &task.Completed, &task.Visibility,
		&task.CreatedAt, &task.UpdatedAt,
	)
}
