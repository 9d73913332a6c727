// Package filter narrows task collections by the optional priority and tag
// criteria a client sends with list requests.
package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/chepyr/go-task-manager/internal/models"
)

// Criteria holds the optional filters. A nil field matches every task.
type Criteria struct {
	PriorityID *int64 `json:"priority,omitempty"`
	TagID      *int64 `json:"tag,omitempty"`
}

func (c Criteria) Empty() bool {
	return c.PriorityID == nil && c.TagID == nil
}

// FromQuery reads the "priority" and "tag" parameters. Missing or blank
// parameters leave the matching criterion unset.
func FromQuery(values url.Values) (Criteria, error) {
	var c Criteria
	var err error
	if c.PriorityID, err = parseID(values, "priority"); err != nil {
		return Criteria{}, err
	}
	if c.TagID, err = parseID(values, "tag"); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

func parseID(values url.Values, key string) (*int64, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer id", key)
	}
	return &id, nil
}

// Apply returns the tasks matching every criterion that is set. The input
// slice is never modified; with empty criteria it is returned as is.
func Apply(tasks []*models.Task, c Criteria) []*models.Task {
	if c.Empty() {
		return tasks
	}
	out := make([]*models.Task, 0, len(tasks))
	for _, task := range tasks {
		if matches(task.PriorityID, c.PriorityID) && matches(task.TagID, c.TagID) {
			out = append(out, task)
		}
	}
	return out
}

func matches(value, want *int64) bool {
	if want == nil {
		return true
	}
	return value != nil && *value == *want
}
