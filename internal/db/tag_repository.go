package db

import (
	"context"
	"database/sql"

	"github.com/chepyr/go-task-manager/internal/models"
)

type TagRepositoryInterface interface {
	Create(ctx context.Context, tag *models.Tag) error
	List(ctx context.Context) ([]*models.Tag, error)
}

type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

// Create inserts a tag under its caller chosen id.
func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO tags (id, name) VALUES ($1, $2)`, tag.ID, tag.Name)
	return translateError(err)
}

func (r *TagRepository) List(ctx context.Context) ([]*models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*models.Tag{}
	for rows.Next() {
		tag := &models.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

type PriorityRepositoryInterface interface {
	List(ctx context.Context) ([]*models.Priority, error)
}

type PriorityRepository struct {
	db *sql.DB
}

func NewPriorityRepository(db *sql.DB) *PriorityRepository {
	return &PriorityRepository{db: db}
}

func (r *PriorityRepository) List(ctx context.Context) ([]*models.Priority, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, level FROM priorities ORDER BY level, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	priorities := []*models.Priority{}
	for rows.Next() {
		p := &models.Priority{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Level); err != nil {
			return nil, err
		}
		priorities = append(priorities, p)
	}
	return priorities, rows.Err()
}
