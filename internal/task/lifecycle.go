// Package task holds the task lifecycle rules: which status transitions are
// legal and who may perform them. Pure functions over model.Task — callers
// validate here before issuing the remote write, so illegal transitions never
// cost a round-trip.
package task

import (
	"strconv"
	"strings"

	"chorebank/internal/fault"
	"chorebank/internal/model"
)

// MarkDone validates the todo -> pending transition. Only the assigned
// dependent may perform it. The caller issues the remote update afterwards;
// if the remote copy has already advanced the write is still last-write-wins.
func MarkDone(t model.Task, actorID string) error {
	if t.AssignedToID != actorID {
		return fault.New(fault.Unauthorized, "only the assigned account can mark this task done")
	}
	if t.Status != model.TaskTodo {
		return fault.Newf(fault.InvalidTransition, "task %q is %s, not todo", t.Title, t.Status)
	}
	return nil
}

// Approve validates the pending -> approved transition. Only the owning
// guardian may perform it. Approved is terminal: once durably recorded, the
// points count as earned and are never clawed back.
func Approve(t model.Task, actorID string) error {
	if t.ParentID != actorID {
		return fault.New(fault.Unauthorized, "only the owning guardian can approve this task")
	}
	if t.Status != model.TaskPending {
		return fault.Newf(fault.InvalidTransition, "task %q is %s, not pending", t.Title, t.Status)
	}
	return nil
}

// ValidateNew checks the fields of a task about to be created.
func ValidateNew(title string, points int, assignedToID string) error {
	if strings.TrimSpace(title) == "" {
		return fault.New(fault.Validation, "title is required")
	}
	if assignedToID == "" {
		return fault.New(fault.Validation, "select a child to assign the task to")
	}
	if points < 0 {
		return fault.Newf(fault.Validation, "points must be >= 0, got %d", points)
	}
	return nil
}

// ParsePoints converts user input to a point value. Unparseable or negative
// input yields 0 rather than an error, matching the lenient input edge.
func ParsePoints(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
