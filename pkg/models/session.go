package models

import "time"

// Session is a bounded period of activity by one caller. Sessions weakly
// reference projects: a session may be created before any project is chosen
// and adopted into one later.
type Session struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Goal        string     `json:"goal,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	AgentModel  string     `json:"agent_model,omitempty"`

	// Derived metrics, populated on read.
	ContextCount  int `json:"context_count"`
	DecisionCount int `json:"decision_count"`
}

// Active reports whether the session is still open.
func (s *Session) Active() bool { return s.EndedAt == nil }

// Duration returns the session length, using now for open sessions.
func (s *Session) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}
