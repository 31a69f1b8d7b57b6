package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/pkg/models"
)

func taskRows(status models.TaskStatus, ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "project_id", "title", "description", "task_type", "priority", "status",
		"assigned_to", "created_by", "tags", "dependencies", "metadata",
		"created_at", "updated_at", "started_at", "completed_at",
	})
	for _, id := range ids {
		rows.AddRow(id, testUUID, "task "+id, "", "feature", "medium", string(status),
			"", "", "{}", "{}", []byte(`{}`),
			time.Now(), time.Now(), nil, nil)
	}
	return rows
}

func TestTaskInsertDefaults(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task := &models.Task{ProjectID: testUUID, Title: "ship it"}
	if err := stores.Tasks.Insert(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("priority = %s, want medium", task.Priority)
	}
	if task.Status != models.TaskTodo {
		t.Errorf("status = %s, want todo", task.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTaskInsertRejectsForeignDependencies(t *testing.T) {
	stores, mock := setupStores(t)

	// The dependency count check finds only one of two tasks in-project.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	task := &models.Task{
		ProjectID:    testUUID,
		Title:        "ship it",
		Dependencies: []string{"dep-1", "dep-2"},
	}
	err := stores.Tasks.Insert(context.Background(), task)
	if errs.KindOf(err) != errs.KindInvalidParams {
		t.Errorf("kind = %s, want InvalidParams", errs.KindOf(err))
	}
}

func TestTaskUpdateStampsTimestamps(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM tasks WHERE id .+ FOR UPDATE").
		WillReturnRows(taskRows(models.TaskInProgress, "t1"))
	mock.ExpectExec("UPDATE tasks SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := stores.Tasks.Update(context.Background(), "t1", testUUID,
		TaskUpdate{Status: models.TaskCompleted})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.CompletedAt == nil {
		t.Error("completed_at not stamped on completion")
	}
}

func TestTaskUpdateStampsStartedAtOnce(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM tasks WHERE id .+ FOR UPDATE").
		WillReturnRows(taskRows(models.TaskTodo, "t1"))
	mock.ExpectExec("UPDATE tasks SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := stores.Tasks.Update(context.Background(), "t1", testUUID,
		TaskUpdate{Status: models.TaskInProgress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.StartedAt == nil {
		t.Error("started_at not stamped on first transition to in_progress")
	}
	if task.CompletedAt != nil {
		t.Error("completed_at set while in progress")
	}
}

func TestTaskUpdateInvalidStatus(t *testing.T) {
	stores, _ := setupStores(t)

	_, err := stores.Tasks.Update(context.Background(), "t1", testUUID,
		TaskUpdate{Status: "done-ish"})
	if errs.KindOf(err) != errs.KindInvalidParams {
		t.Errorf("kind = %s, want InvalidParams", errs.KindOf(err))
	}
}

func TestTaskBulkUpdateAllOrNothing(t *testing.T) {
	stores, mock := setupStores(t)

	// First task updates cleanly, second one is missing: everything rolls back.
	mock.ExpectBegin()
	mock.ExpectQuery("FROM tasks WHERE id .+ FOR UPDATE").
		WillReturnRows(taskRows(models.TaskTodo, "t1"))
	mock.ExpectExec("UPDATE tasks SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM tasks WHERE id .+ FOR UPDATE").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	result, err := stores.Tasks.BulkUpdate(context.Background(),
		[]string{"t1", "t2"}, testUUID, TaskUpdate{Status: models.TaskCompleted})
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("kind = %s, want NotFound", errs.KindOf(err))
	}
	if result == nil {
		t.Fatal("rollback should still report the batch outcome")
	}
	if result.TotalRequested != 2 || result.SuccessfullyUpdated != 0 || result.Failed != 2 {
		t.Errorf("result = %+v, want 2 requested, 0 updated, 2 failed", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTaskBulkUpdateSuccess(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectBegin()
	for _, id := range []string{"t1", "t2"} {
		mock.ExpectQuery("FROM tasks WHERE id .+ FOR UPDATE").
			WillReturnRows(taskRows(models.TaskTodo, id))
		mock.ExpectExec("UPDATE tasks SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	result, err := stores.Tasks.BulkUpdate(context.Background(),
		[]string{"t1", "t2"}, testUUID, TaskUpdate{Status: models.TaskInProgress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SuccessfullyUpdated != 2 || len(result.UpdatedTaskIDs) != 2 {
		t.Errorf("result = %+v, want 2 updated", result)
	}
}

func TestTaskBulkUpdateEmptyIDs(t *testing.T) {
	stores, _ := setupStores(t)

	_, err := stores.Tasks.BulkUpdate(context.Background(), nil, testUUID,
		TaskUpdate{Status: models.TaskCompleted})
	if errs.KindOf(err) != errs.KindInvalidParams {
		t.Errorf("kind = %s, want InvalidParams", errs.KindOf(err))
	}
}

func TestTaskDeleteNotFound(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectExec("DELETE FROM tasks").
		WithArgs("t1", testUUID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := stores.Tasks.Delete(context.Background(), "t1", testUUID)
	if errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("kind = %s, want NotFound", errs.KindOf(err))
	}
}
