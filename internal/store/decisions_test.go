package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/aidisdev/aidis/internal/errs"
)

func decisionRows(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "project_id", "decision_type", "title", "description", "rationale", "impact_level",
		"alternatives", "problem_statement", "affected_components", "tags",
		"outcome_status", "outcome_notes", "lessons_learned", "decision_date", "created_at", "updated_at",
	}).AddRow("d1", testUUID, "architecture", "use postgres", "", "fits the data", "high",
		[]byte(`[]`), "", "{}", "{}",
		status, "worked out", "keep vectors close to the rows", time.Now(), time.Now(), time.Now())
}

// updateOutcomeSQL pins the full statement: only the outcome columns and
// updated_at may appear in the SET list.
const updateOutcomeSQL = `UPDATE decisions SET\s+` +
	`outcome_status = COALESCE\(NULLIF\(\$3, ''\), outcome_status\),\s+` +
	`outcome_notes = CASE WHEN \$4 <> '' THEN \$4 ELSE outcome_notes END,\s+` +
	`lessons_learned = CASE WHEN \$5 <> '' THEN \$5 ELSE lessons_learned END,\s+` +
	`updated_at = now\(\)\s+` +
	`WHERE id = \$1 AND project_id = \$2`

func TestDecisionUpdateOutcomeTouchesOnlyOutcomeColumns(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectExec(updateOutcomeSQL).
		WithArgs("d1", testUUID, "successful", "worked out", "keep vectors close to the rows").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM decisions WHERE id").
		WithArgs("d1", testUUID).
		WillReturnRows(decisionRows("successful"))

	d, err := stores.Decisions.UpdateOutcome(context.Background(), "d1", testUUID,
		"successful", "worked out", "keep vectors close to the rows")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.OutcomeStatus != "successful" {
		t.Errorf("outcome status = %s, want successful", d.OutcomeStatus)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDecisionUpdateOutcomeKeepsEmptyArgsOut(t *testing.T) {
	stores, mock := setupStores(t)

	// Empty strings ride through as-is; the SQL's COALESCE/CASE guards keep
	// the stored values untouched.
	mock.ExpectExec(updateOutcomeSQL).
		WithArgs("d1", testUUID, "failed", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM decisions WHERE id").
		WithArgs("d1", testUUID).
		WillReturnRows(decisionRows("failed"))

	if _, err := stores.Decisions.UpdateOutcome(context.Background(), "d1", testUUID,
		"failed", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDecisionUpdateOutcomeNotFound(t *testing.T) {
	stores, mock := setupStores(t)

	mock.ExpectExec(updateOutcomeSQL).
		WithArgs("missing", testUUID, "successful", "", "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := stores.Decisions.UpdateOutcome(context.Background(), "missing", testUUID,
		"successful", "", "")
	if errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("kind = %s, want NotFound", errs.KindOf(err))
	}
}
