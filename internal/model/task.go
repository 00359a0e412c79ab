package model

import "time"

// TaskStatus values. A task starts in todo, moves to pending when the
// assigned dependent marks it done, and becomes approved (terminal) when the
// owning guardian signs off. Approval is the only point at which the task's
// points count as earned.
type TaskStatus string

const (
	TaskTodo     TaskStatus = "todo"
	TaskPending  TaskStatus = "pending"
	TaskApproved TaskStatus = "approved"
)

// Task is a chore assigned by a guardian to a dependent.
//
// AssignedToEmail is a denormalized display copy; AssignedToID is always the
// authoritative identity and conflicts are never resolved in the email's favor.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Points          int        `json:"points"`
	Status          TaskStatus `json:"status"`
	AssignedToID    string     `json:"assignedToId"`
	AssignedToEmail string     `json:"assignedToEmail"`
	ParentID        string     `json:"parentId"`
	CreatedAt       time.Time  `json:"createdAt"`
}
