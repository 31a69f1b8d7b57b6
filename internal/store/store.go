// Package store implements the SQL persistence for projects, sessions,
// contexts, decisions and tasks on top of the storage gateway. Every store
// keeps its SQL local and returns typed errors from the gateway's mapper.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aidisdev/aidis/internal/db"
)

// Stores bundles the per-entity stores sharing one pool.
type Stores struct {
	Projects  *ProjectStore
	Sessions  *SessionStore
	Contexts  *ContextStore
	Decisions *DecisionStore
	Tasks     *TaskStore
	Callers   *CallerStateStore
}

// New creates the store bundle over the given pool.
func New(pool *db.Pool) *Stores {
	return &Stores{
		Projects:  &ProjectStore{pool: pool},
		Sessions:  &SessionStore{pool: pool},
		Contexts:  &ContextStore{pool: pool},
		Decisions: &DecisionStore{pool: pool},
		Tasks:     &TaskStore{pool: pool},
		Callers:   &CallerStateStore{pool: pool},
	}
}

// marshalMeta encodes a metadata map for a JSONB column. Nil maps encode
// to an empty object so the column default stays meaningful.
func marshalMeta(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

// unmarshalMeta decodes a JSONB column into a map, tolerating NULL.
func unmarshalMeta(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

// nullTime converts an optional time for a nullable column.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// timePtr converts a nullable column back to an optional time.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// nullString converts an optional string for a nullable column.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
