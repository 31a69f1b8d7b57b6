package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aidisdev/aidis/internal/db"
)

// CallerStateStore persists the ambient current-project / current-session
// pointers per caller, so the selection survives daemon restarts.
type CallerStateStore struct {
	pool *db.Pool
}

// CallerState is one caller's persisted ambient state.
type CallerState struct {
	CallerID  string
	ProjectID string
	SessionID string
}

// Get loads the caller's state. A caller with no saved state returns zero
// values, not NotFound.
func (s *CallerStateStore) Get(ctx context.Context, callerID string) (CallerState, error) {
	state := CallerState{CallerID: callerID}
	var projectID, sessionID sql.NullString
	err := s.pool.QueryRow(ctx, `
		SELECT current_project_id, current_session_id FROM caller_state WHERE caller_id = $1`,
		callerID,
	).Scan(&projectID, &sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state, nil
		}
		return state, db.MapError(err)
	}
	state.ProjectID = projectID.String
	state.SessionID = sessionID.String
	return state, nil
}

// SetProject writes the current-project pointer in a single transaction and
// reads it back, returning the stored value for post-switch verification.
func (s *CallerStateStore) SetProject(ctx context.Context, callerID, projectID string) (string, error) {
	var stored sql.NullString
	err := s.pool.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO caller_state (caller_id, current_project_id, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (caller_id) DO UPDATE
				SET current_project_id = EXCLUDED.current_project_id, updated_at = now()`,
			callerID, nullString(projectID))
		if err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			SELECT current_project_id FROM caller_state WHERE caller_id = $1`, callerID,
		).Scan(&stored)
	})
	if err != nil {
		return "", err
	}
	return stored.String, nil
}

// ClearSessions drops every remembered session pointer, after the sessions
// themselves have been ended.
func (s *CallerStateStore) ClearSessions(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE caller_state SET current_session_id = NULL, updated_at = now()
		WHERE current_session_id IS NOT NULL`)
	return err
}

// SetSession writes the current-session pointer.
func (s *CallerStateStore) SetSession(ctx context.Context, callerID, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO caller_state (caller_id, current_session_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (caller_id) DO UPDATE
			SET current_session_id = EXCLUDED.current_session_id, updated_at = now()`,
		callerID, nullString(sessionID))
	return err
}
