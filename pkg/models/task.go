package models

import (
	"fmt"
	"time"
)

// TaskPriority orders agent work.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Task is one unit of agent work inside a project.
//
// Invariant: CompletedAt is set iff Status == TaskCompleted, and every
// dependency resolves to a task in the same project.
type Task struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Type         string         `json:"type,omitempty"`
	Priority     TaskPriority   `json:"priority"`
	Status       TaskStatus     `json:"status"`
	AssignedTo   string         `json:"assigned_to,omitempty"`
	CreatedBy    string         `json:"created_by,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskBlocked, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// ValidTaskPriority reports whether p is a known priority.
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Validate checks the fields required at creation time.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !ValidTaskPriority(t.Priority) {
		return fmt.Errorf("invalid priority: %q", t.Priority)
	}
	if !ValidTaskStatus(t.Status) {
		return fmt.Errorf("invalid status: %q", t.Status)
	}
	return nil
}

// BulkUpdateResult reports the outcome of task_bulk_update. The operation is
// all-or-nothing: SuccessfullyUpdated is either len(requested) or zero.
type BulkUpdateResult struct {
	TotalRequested      int      `json:"totalRequested"`
	SuccessfullyUpdated int      `json:"successfullyUpdated"`
	Failed              int      `json:"failed"`
	UpdatedTaskIDs      []string `json:"updatedTaskIds"`
}

// TaskGroup is one bucket in a task_progress_summary response.
type TaskGroup struct {
	Key           string         `json:"key"`
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	CompletionPct float64        `json:"completion_pct"`
}

// TaskProgressSummary is the response shape of task_progress_summary.
type TaskProgressSummary struct {
	GroupBy       string      `json:"group_by"`
	Groups        []TaskGroup `json:"groups"`
	Total         int         `json:"total"`
	Completed     int         `json:"completed"`
	CompletionPct float64     `json:"completion_pct"`
}
