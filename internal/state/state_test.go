package state

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/aidisdev/aidis/internal/db"
	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/observability"
	"github.com/aidisdev/aidis/internal/store"
)

const (
	prevProjectID   = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	targetProjectID = "6ba7b811-9dad-11d1-80b4-00c04fd430c8"
)

func newTestManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })
	stores := store.New(db.NewPoolFromDB(sqldb, time.Second, 10))
	return NewManager(stores, observability.NewTestLogger()), mock
}

func callerStateRow(projectID, sessionID any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"current_project_id", "current_session_id"}).
		AddRow(projectID, sessionID)
}

func projectRow(id, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "status", "git_repo_url", "root_directory",
		"metadata", "created_at", "updated_at",
	}).AddRow(id, "platform", "", status, "", "", []byte(`{}`), time.Now(), time.Now())
}

// expectSetProject matches one CallerStateStore.SetProject round trip,
// reading back storedID for the verification phase.
func expectSetProject(mock sqlmock.Sqlmock, storedID string) {
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO caller_state").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT current_project_id FROM caller_state").
		WillReturnRows(sqlmock.NewRows([]string{"current_project_id"}).AddRow(storedID))
	mock.ExpectCommit()
}

func TestSwitchProjectRejectsArchivedTarget(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectQuery("FROM caller_state").
		WithArgs("cli").
		WillReturnRows(callerStateRow(prevProjectID, nil))
	mock.ExpectQuery("FROM projects WHERE name").
		WithArgs("platform").
		WillReturnRows(projectRow(targetProjectID, "archived"))

	_, err := m.SwitchProject(context.Background(), "cli", "platform")
	if errs.KindOf(err) != errs.KindPreSwitchValidationFailed {
		t.Fatalf("kind = %s, want PreSwitchValidationFailed", errs.KindOf(err))
	}
	// No pointer write was attempted: the previous project stays current.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSwitchProjectRejectsUnknownTarget(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectQuery("FROM caller_state").
		WithArgs("cli").
		WillReturnRows(callerStateRow(prevProjectID, nil))
	mock.ExpectQuery("FROM projects WHERE name").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := m.SwitchProject(context.Background(), "cli", "ghost")
	if errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("kind = %s, want NotFound", errs.KindOf(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSwitchProjectRollsBackOnVerificationMismatch(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectQuery("FROM caller_state").
		WithArgs("cli").
		WillReturnRows(callerStateRow(prevProjectID, nil))
	mock.ExpectQuery("FROM projects WHERE name").
		WithArgs("platform").
		WillReturnRows(projectRow(targetProjectID, "active"))

	// The pointer write lands but reads back the wrong value; the manager
	// must restore the previous pointer.
	expectSetProject(mock, prevProjectID)
	expectSetProject(mock, prevProjectID)

	_, err := m.SwitchProject(context.Background(), "cli", "platform")
	if errs.KindOf(err) != errs.KindAtomicSwitchFailed {
		t.Fatalf("kind = %s, want AtomicSwitchFailed", errs.KindOf(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSwitchProjectRollsBackOnPointerWriteFailure(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectQuery("FROM caller_state").
		WithArgs("cli").
		WillReturnRows(callerStateRow(prevProjectID, nil))
	mock.ExpectQuery("FROM projects WHERE name").
		WithArgs("platform").
		WillReturnRows(projectRow(targetProjectID, "active"))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO caller_state").
		WillReturnError(&pq.Error{Code: "08006"})
	mock.ExpectRollback()

	// Rollback restores the previous pointer.
	expectSetProject(mock, prevProjectID)

	_, err := m.SwitchProject(context.Background(), "cli", "platform")
	if errs.KindOf(err) != errs.KindAtomicSwitchFailed {
		t.Fatalf("kind = %s, want AtomicSwitchFailed", errs.KindOf(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEndAllSessionsClosesEveryOpenSession(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectExec("UPDATE sessions SET ended_at = now\\(\\) WHERE ended_at IS NULL").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("UPDATE caller_state SET current_session_id = NULL").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := m.EndAllSessions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("ended %d sessions, want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEnsureSessionAutoCreates(t *testing.T) {
	m, mock := newTestManager(t)

	// No saved state for this caller.
	mock.ExpectQuery("FROM caller_state").
		WithArgs("cli").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("FROM projects").
		WillReturnRows(projectRow(targetProjectID, "active"))
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO caller_state").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectSetProject(mock, targetProjectID)

	sess, err := m.EnsureSession(context.Background(), "cli")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ProjectID != targetProjectID {
		t.Errorf("session project = %s, want %s", sess.ProjectID, targetProjectID)
	}
	if sess.ID == "" {
		t.Error("expected a generated session id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
