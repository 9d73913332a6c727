package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanEdit reports whether u may edit task. Staff may edit any task,
// everybody else only their own.
func (u *User) CanEdit(task *Task) bool {
	if u == nil || task == nil {
		return false
	}
	return u.IsStaff || u.ID == task.UserID
}

// PublicProfile is what other users get to see about u.
type PublicProfile struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Username: u.Username}
}
