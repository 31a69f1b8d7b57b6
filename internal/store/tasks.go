package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aidisdev/aidis/internal/db"
	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/pkg/models"
)

// TaskStore persists tasks.
type TaskStore struct {
	pool *db.Pool
}

const taskColumns = `id, project_id, title, description, task_type, priority, status,
	assigned_to, created_by, tags, dependencies, metadata,
	created_at, updated_at, started_at, completed_at`

// Insert creates a task. Dependencies must resolve to tasks in the same
// project; the check and the insert share one transaction.
func (s *TaskStore) Insert(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := t.Validate(); err != nil {
		return errs.InvalidParams("%v", err)
	}

	meta, err := marshalMeta(t.Metadata)
	if err != nil {
		return errs.Internal(err, "encode task metadata")
	}

	return s.pool.Tx(ctx, func(tx *sql.Tx) error {
		if len(t.Dependencies) > 0 {
			var n int
			err := tx.QueryRowContext(ctx, `
				SELECT count(*) FROM tasks WHERE project_id = $1 AND id = ANY($2)`,
				t.ProjectID, pq.Array(t.Dependencies),
			).Scan(&n)
			if err != nil {
				return err
			}
			if n != len(t.Dependencies) {
				return errs.InvalidParams("dependencies must reference tasks in project %s", t.ProjectID)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			t.ID, t.ProjectID, t.Title, t.Description, t.Type, t.Priority, t.Status,
			t.AssignedTo, t.CreatedBy, pq.Array(t.Tags), pq.Array(t.Dependencies), meta,
			t.CreatedAt, t.UpdatedAt, nullTime(t.StartedAt), nullTime(t.CompletedAt),
		)
		return err
	})
}

// Get fetches a task by id, optionally restricted to a project.
func (s *TaskStore) Get(ctx context.Context, id, projectID string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	args := []any{id}
	if projectID != "" {
		query += ` AND project_id = $2`
		args = append(args, projectID)
	}
	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return nil, errs.NotFound("task %q not found", id)
		}
		return nil, err
	}
	return t, nil
}

// TaskFilter is the filter set for task_list.
type TaskFilter struct {
	ProjectID  string
	Statuses   []models.TaskStatus
	Priority   models.TaskPriority
	Tags       []string // matches tasks carrying ANY of these tags
	AssignedTo string
	Type       string
	Phase      string // synthetic filter matching tag "phase-<value>"
}

// List returns tasks matching the filter, newest first.
func (s *TaskStore) List(ctx context.Context, f TaskFilter) ([]*models.Task, error) {
	var sb strings.Builder
	args := []any{f.ProjectID}
	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1`)

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, pq.Array(statuses))
		fmt.Fprintf(&sb, ` AND status = ANY($%d)`, len(args))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		fmt.Fprintf(&sb, ` AND priority = $%d`, len(args))
	}
	if f.AssignedTo != "" {
		args = append(args, f.AssignedTo)
		fmt.Fprintf(&sb, ` AND assigned_to = $%d`, len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		fmt.Fprintf(&sb, ` AND task_type = $%d`, len(args))
	}
	tags := f.Tags
	if f.Phase != "" {
		tags = append(tags, "phase-"+f.Phase)
	}
	if len(tags) > 0 {
		args = append(args, pq.Array(tags))
		fmt.Fprintf(&sb, ` AND tags && $%d`, len(args))
	}
	sb.WriteString(` ORDER BY created_at DESC`)

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, db.MapError(rows.Err())
}

// TaskUpdate is the mutable field set for task_update.
type TaskUpdate struct {
	Status     models.TaskStatus
	AssignedTo *string
	Metadata   map[string]any
}

// Update applies a status change (plus optional assignee/metadata) to one
// task, keeping the started/completed timestamps consistent with status.
func (s *TaskStore) Update(ctx context.Context, id, projectID string, upd TaskUpdate) (*models.Task, error) {
	if !models.ValidTaskStatus(upd.Status) {
		return nil, errs.InvalidParams("invalid status: %q", upd.Status)
	}

	var updated *models.Task
	err := s.pool.Tx(ctx, func(tx *sql.Tx) error {
		t, err := updateTaskTx(ctx, tx, id, projectID, upd)
		if err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// BulkUpdate applies the same update to every listed task atomically.
// If any task is missing or fails validation the transaction rolls back
// and the result reports zero successes.
func (s *TaskStore) BulkUpdate(ctx context.Context, ids []string, projectID string, upd TaskUpdate) (*models.BulkUpdateResult, error) {
	result := &models.BulkUpdateResult{TotalRequested: len(ids), UpdatedTaskIDs: []string{}}
	if len(ids) == 0 {
		return nil, errs.InvalidParams("task_ids must not be empty")
	}
	if !models.ValidTaskStatus(upd.Status) {
		return nil, errs.InvalidParams("invalid status: %q", upd.Status)
	}

	err := s.pool.Tx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := updateTaskTx(ctx, tx, id, projectID, upd); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		result.Failed = len(ids)
		// All-or-nothing: report the rollback, surface the cause alongside.
		return result, err
	}

	result.SuccessfullyUpdated = len(ids)
	result.UpdatedTaskIDs = append(result.UpdatedTaskIDs, ids...)
	return result, nil
}

// updateTaskTx performs one task update inside an open transaction.
func updateTaskTx(ctx context.Context, tx *sql.Tx, id, projectID string, upd TaskUpdate) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	args := []any{id}
	if projectID != "" {
		query += ` AND project_id = $2`
		args = append(args, projectID)
	}
	query += ` FOR UPDATE`

	t, err := scanTask(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return nil, errs.NotFound("task %q not found", id)
		}
		return nil, err
	}

	now := time.Now().UTC()
	t.Status = upd.Status
	t.UpdatedAt = now
	if upd.AssignedTo != nil {
		t.AssignedTo = *upd.AssignedTo
	}
	if upd.Metadata != nil {
		t.Metadata = upd.Metadata
	}

	// completed_at is set iff status is completed; started_at is stamped on
	// the first transition into in_progress.
	switch upd.Status {
	case models.TaskCompleted:
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
	default:
		t.CompletedAt = nil
	}
	if upd.Status == models.TaskInProgress && t.StartedAt == nil {
		t.StartedAt = &now
	}

	meta, err := marshalMeta(t.Metadata)
	if err != nil {
		return nil, errs.Internal(err, "encode task metadata")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks SET status = $2, assigned_to = $3, metadata = $4,
			updated_at = $5, started_at = $6, completed_at = $7
		WHERE id = $1`,
		t.ID, t.Status, t.AssignedTo, meta, t.UpdatedAt,
		nullTime(t.StartedAt), nullTime(t.CompletedAt))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a task.
func (s *TaskStore) Delete(ctx context.Context, id, projectID string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return db.MapError(err)
	}
	if n == 0 {
		return errs.NotFound("task %q not found", id)
	}
	return nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var tags, deps pq.StringArray
	var meta []byte
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Type, &t.Priority, &t.Status,
		&t.AssignedTo, &t.CreatedBy, &tags, &deps, &meta,
		&t.CreatedAt, &t.UpdatedAt, &startedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("task not found")
		}
		return nil, db.MapError(err)
	}
	t.Tags = tags
	t.Dependencies = deps
	t.StartedAt = timePtr(startedAt)
	t.CompletedAt = timePtr(completedAt)
	if t.Metadata, err = unmarshalMeta(meta); err != nil {
		return nil, errs.Internal(err, "decode task metadata")
	}
	return &t, nil
}
