package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/aidisdev/aidis/internal/db"
	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/pkg/models"
)

func setupStores(t *testing.T) (*Stores, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })
	return New(db.NewPoolFromDB(sqldb, time.Second, 10)), mock
}

func projectRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "status", "git_repo_url", "root_directory",
		"metadata", "created_at", "updated_at",
	})
	for i, id := range ids {
		rows.AddRow(id, "project-"+id, "", "active", "", "", []byte(`{}`),
			time.Now().Add(time.Duration(-i)*time.Hour), time.Now())
	}
	return rows
}

const testUUID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

func TestProjectCreate(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectExec("INSERT INTO projects").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &models.Project{Name: "demo"}
	if err := stores.Projects.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == "" {
		t.Error("expected a generated id")
	}
	if p.Status != models.ProjectActive {
		t.Errorf("status = %s, want active", p.Status)
	}
}

func TestProjectCreateDuplicateName(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectExec("INSERT INTO projects").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "projects_name_key"})

	err := stores.Projects.Create(context.Background(), &models.Project{Name: "demo"})
	if errs.KindOf(err) != errs.KindConflict {
		t.Errorf("kind = %s, want Conflict", errs.KindOf(err))
	}
}

func TestProjectCreateValidation(t *testing.T) {
	stores, _ := setupStores(t)

	err := stores.Projects.Create(context.Background(), &models.Project{Name: ""})
	if errs.KindOf(err) != errs.KindInvalidParams {
		t.Errorf("kind = %s, want InvalidParams", errs.KindOf(err))
	}
}

func TestProjectResolveByName(t *testing.T) {
	stores, mock := setupStores(t)

	// A non-uuid identifier goes straight to the name lookup.
	mock.ExpectQuery("SELECT .+ FROM projects WHERE name").
		WithArgs("demo").
		WillReturnRows(projectRows(testUUID))

	p, err := stores.Projects.Resolve(context.Background(), "demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != testUUID {
		t.Errorf("id = %s, want %s", p.ID, testUUID)
	}
}

func TestProjectResolveByID(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectQuery("SELECT .+ FROM projects WHERE id").
		WithArgs(testUUID).
		WillReturnRows(projectRows(testUUID))

	p, err := stores.Projects.Resolve(context.Background(), testUUID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != testUUID {
		t.Errorf("id = %s", p.ID)
	}
}

func TestProjectResolveUUIDFallsBackToName(t *testing.T) {
	stores, mock := setupStores(t)

	// A uuid that matches no row retries as a name before giving up.
	mock.ExpectQuery("SELECT .+ FROM projects WHERE id").
		WithArgs(testUUID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM projects WHERE name").
		WithArgs(testUUID).
		WillReturnError(sql.ErrNoRows)

	_, err := stores.Projects.Resolve(context.Background(), testUUID)
	if errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("kind = %s, want NotFound", errs.KindOf(err))
	}
}

func TestProjectDelete(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectExec("DELETE FROM projects").
		WithArgs(testUUID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := stores.Projects.Delete(context.Background(), testUUID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProjectDeleteNotFound(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectExec("DELETE FROM projects").
		WithArgs(testUUID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := stores.Projects.Delete(context.Background(), testUUID)
	if errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("kind = %s, want NotFound", errs.KindOf(err))
	}
}

func TestProjectAnyActiveEmpty(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectQuery("SELECT .+ FROM projects").
		WillReturnError(sql.ErrNoRows)

	_, err := stores.Projects.AnyActive(context.Background())
	if errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("kind = %s, want NotFound", errs.KindOf(err))
	}
}
