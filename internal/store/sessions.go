package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aidisdev/aidis/internal/db"
	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/pkg/models"
)

// SessionStore persists sessions. Ended sessions are retained forever;
// nothing in the daemon trims them.
type SessionStore struct {
	pool *db.Pool
}

const sessionColumns = `id, project_id, started_at, ended_at, title, description, goal, tags, agent_model`

// Create inserts a new session.
func (s *SessionStore) Create(ctx context.Context, sess *models.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, project_id, started_at, ended_at, title, description, goal, tags, agent_model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sess.ID, nullString(sess.ProjectID), sess.StartedAt, nullTime(sess.EndedAt),
		sess.Title, sess.Description, sess.Goal, pq.Array(sess.Tags), sess.AgentModel,
	)
	return err
}

// Get fetches a session with its derived context/decision counts.
func (s *SessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`,
			(SELECT count(*) FROM contexts WHERE session_id = sessions.id),
			(SELECT count(*) FROM decisions d
				WHERE d.project_id = sessions.project_id
				AND d.created_at >= sessions.started_at
				AND d.created_at <= COALESCE(sessions.ended_at, now()))
		FROM sessions WHERE id = $1`, id)

	var sess models.Session
	var projectID sql.NullString
	var endedAt sql.NullTime
	var tags pq.StringArray
	err := row.Scan(&sess.ID, &projectID, &sess.StartedAt, &endedAt, &sess.Title,
		&sess.Description, &sess.Goal, &tags, &sess.AgentModel,
		&sess.ContextCount, &sess.DecisionCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("session %q not found", id)
		}
		return nil, db.MapError(err)
	}
	sess.ProjectID = projectID.String
	sess.EndedAt = timePtr(endedAt)
	sess.Tags = tags
	return &sess, nil
}

// End closes the session if it is still open. Ending an already-ended
// session is a no-op.
func (s *SessionStore) End(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET ended_at = now() WHERE id = $1 AND ended_at IS NULL`, id)
	return err
}

// EndAllOpen closes every open session and reports how many were closed.
// The daemon runs as a singleton, so open sessions all belong to the
// running instance; stale ones from a crash get closed along the way.
func (s *SessionStore) EndAllOpen(ctx context.Context) (int64, error) {
	res, err := s.pool.Exec(ctx, `
		UPDATE sessions SET ended_at = now() WHERE ended_at IS NULL`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, db.MapError(err)
	}
	return n, nil
}

// AssignProject adopts an unowned session into a project.
func (s *SessionStore) AssignProject(ctx context.Context, sessionID, projectID string) error {
	res, err := s.pool.Exec(ctx, `
		UPDATE sessions SET project_id = $2 WHERE id = $1`, sessionID, projectID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return db.MapError(err)
	}
	if n == 0 {
		return errs.NotFound("session %q not found", sessionID)
	}
	return nil
}
