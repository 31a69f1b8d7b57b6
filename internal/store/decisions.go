package store

import (
	"context"
	"database/sql"
	"encoding/json"
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

// DecisionStore persists technical decisions. Decisions are immutable after
// creation except for the outcome fields.
type DecisionStore struct {
	pool *db.Pool
}

const decisionColumns = `id, project_id, decision_type, title, description, rationale, impact_level,
	alternatives, problem_statement, affected_components, tags,
	outcome_status, outcome_notes, lessons_learned, decision_date, created_at, updated_at`

// Insert records a new decision.
func (s *DecisionStore) Insert(ctx context.Context, d *models.Decision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.DecisionDate.IsZero() {
		d.DecisionDate = now
	}
	if d.OutcomeStatus == "" {
		d.OutcomeStatus = models.OutcomeUnknown
	}
	if err := d.Validate(); err != nil {
		return errs.InvalidParams("%v", err)
	}

	alts, err := json.Marshal(d.Alternatives)
	if err != nil {
		return errs.Internal(err, "encode alternatives")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO decisions (`+decisionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		d.ID, d.ProjectID, d.Type, d.Title, d.Description, d.Rationale, d.ImpactLevel,
		alts, d.ProblemStatement, pq.Array(d.AffectedComponents), pq.Array(d.Tags),
		d.OutcomeStatus, d.OutcomeNotes, d.LessonsLearned, d.DecisionDate, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// Get fetches a decision by id within a project.
func (s *DecisionStore) Get(ctx context.Context, id, projectID string) (*models.Decision, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+decisionColumns+` FROM decisions WHERE id = $1 AND project_id = $2`, id, projectID)
	return scanDecision(row)
}

// DecisionFilter is the structured filter set for decision_search.
type DecisionFilter struct {
	ProjectID string
	Query     string // free text matched against title/description/rationale
	Type      models.DecisionType
	Impact    models.ImpactLevel
	Status    models.OutcomeStatus
	Tags      []string
	Limit     int
}

// Search returns decisions matching the filter, newest first.
func (s *DecisionStore) Search(ctx context.Context, f DecisionFilter) ([]*models.Decision, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}

	var sb strings.Builder
	args := []any{f.ProjectID}
	sb.WriteString(`SELECT ` + decisionColumns + ` FROM decisions WHERE project_id = $1`)

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		fmt.Fprintf(&sb, ` AND (title ILIKE $%d OR description ILIKE $%d OR rationale ILIKE $%d)`,
			len(args), len(args), len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		fmt.Fprintf(&sb, ` AND decision_type = $%d`, len(args))
	}
	if f.Impact != "" {
		args = append(args, f.Impact)
		fmt.Fprintf(&sb, ` AND impact_level = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		fmt.Fprintf(&sb, ` AND outcome_status = $%d`, len(args))
	}
	if len(f.Tags) > 0 {
		args = append(args, pq.Array(f.Tags))
		fmt.Fprintf(&sb, ` AND tags && $%d`, len(args))
	}

	args = append(args, f.Limit)
	fmt.Fprintf(&sb, ` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, db.MapError(rows.Err())
}

// UpdateOutcome mutates only the outcome fields. Empty arguments leave the
// stored value untouched.
func (s *DecisionStore) UpdateOutcome(ctx context.Context, id, projectID string, status models.OutcomeStatus, notes, lessons string) (*models.Decision, error) {
	res, err := s.pool.Exec(ctx, `
		UPDATE decisions SET
			outcome_status = COALESCE(NULLIF($3, ''), outcome_status),
			outcome_notes = CASE WHEN $4 <> '' THEN $4 ELSE outcome_notes END,
			lessons_learned = CASE WHEN $5 <> '' THEN $5 ELSE lessons_learned END,
			updated_at = now()
		WHERE id = $1 AND project_id = $2`,
		id, projectID, string(status), notes, lessons)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, db.MapError(err)
	}
	if n == 0 {
		return nil, errs.NotFound("decision %q not found", id)
	}
	return s.Get(ctx, id, projectID)
}

// Delete removes a decision.
func (s *DecisionStore) Delete(ctx context.Context, id, projectID string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM decisions WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return db.MapError(err)
	}
	if n == 0 {
		return errs.NotFound("decision %q not found", id)
	}
	return nil
}

// Stats aggregates decisions per type, status and impact, with the success
// rate over decided outcomes (successful out of successful+failed+mixed).
func (s *DecisionStore) Stats(ctx context.Context, projectID string) (*models.DecisionStats, error) {
	stats := &models.DecisionStats{
		ByType:   map[string]int{},
		ByStatus: map[string]int{},
		ByImpact: map[string]int{},
	}

	rows, err := s.pool.Query(ctx, `
		SELECT decision_type, outcome_status, impact_level, count(*)
		FROM decisions WHERE project_id = $1
		GROUP BY decision_type, outcome_status, impact_level`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var successful, decided int
	for rows.Next() {
		var typ, status, impact string
		var n int
		if err := rows.Scan(&typ, &status, &impact, &n); err != nil {
			return nil, db.MapError(err)
		}
		stats.Total += n
		stats.ByType[typ] += n
		stats.ByStatus[status] += n
		stats.ByImpact[impact] += n
		switch models.OutcomeStatus(status) {
		case models.OutcomeSuccessful:
			successful += n
			decided += n
		case models.OutcomeFailed, models.OutcomeMixed:
			decided += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}

	if decided > 0 {
		stats.SuccessRate = float64(successful) / float64(decided) * 100
	}
	return stats, nil
}

func scanDecision(row rowScanner) (*models.Decision, error) {
	var d models.Decision
	var alts []byte
	var components, tags pq.StringArray
	err := row.Scan(&d.ID, &d.ProjectID, &d.Type, &d.Title, &d.Description, &d.Rationale,
		&d.ImpactLevel, &alts, &d.ProblemStatement, &components, &tags,
		&d.OutcomeStatus, &d.OutcomeNotes, &d.LessonsLearned, &d.DecisionDate, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("decision not found")
		}
		return nil, db.MapError(err)
	}
	d.AffectedComponents = components
	d.Tags = tags
	if len(alts) > 0 {
		if err := json.Unmarshal(alts, &d.Alternatives); err != nil {
			return nil, errs.Internal(err, "decode alternatives")
		}
	}
	return &d, nil
}
