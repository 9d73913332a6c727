package models

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Priority levels are ordered by Level, lowest first.
type Priority struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}
