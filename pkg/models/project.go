// Package models provides the domain types shared across the AIDIS daemon.
package models

import (
	"fmt"
	"strings"
	"time"
)

// ProjectStatus identifies the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

// Project is a named isolated workspace. Every context, decision, task and
// (eventually) session belongs to exactly one project.
type Project struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Status        ProjectStatus  `json:"status"`
	GitRepoURL    string         `json:"git_repo_url,omitempty"`
	RootDirectory string         `json:"root_directory,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	// Stats are populated only when the caller asks for them.
	Stats *ProjectStats `json:"stats,omitempty"`
}

// ProjectStats is the optional per-project rollup returned by project_list.
type ProjectStats struct {
	ContextCount  int `json:"context_count"`
	DecisionCount int `json:"decision_count"`
	TaskCount     int `json:"task_count"`
	SessionCount  int `json:"session_count"`
}

// Validate checks invariants that must hold before a project is persisted.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	if p.Status != ProjectActive && p.Status != ProjectArchived {
		return fmt.Errorf("invalid project status: %q", p.Status)
	}
	return nil
}
