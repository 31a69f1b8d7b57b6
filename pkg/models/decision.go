package models

import (
	"fmt"
	"time"
)

// DecisionType classifies a recorded technical decision.
type DecisionType string

const (
	DecisionArchitecture  DecisionType = "architecture"
	DecisionLibrary       DecisionType = "library"
	DecisionFramework     DecisionType = "framework"
	DecisionDatabase      DecisionType = "database"
	DecisionDeployment    DecisionType = "deployment"
	DecisionSecurity      DecisionType = "security"
	DecisionPerformance   DecisionType = "performance"
	DecisionUI            DecisionType = "ui_ux"
	DecisionTesting       DecisionType = "testing"
	DecisionTooling       DecisionType = "tooling"
	DecisionProcess       DecisionType = "process"
	DecisionNamingConv    DecisionType = "naming_convention"
	DecisionCodeStyle     DecisionType = "code_style"
	DecisionAPIDesign     DecisionType = "api_design"
	DecisionInfrastructure DecisionType = "infrastructure"
)

// DecisionTypes is the closed 15-member set of accepted decision types.
var DecisionTypes = []DecisionType{
	DecisionArchitecture, DecisionLibrary, DecisionFramework, DecisionDatabase,
	DecisionDeployment, DecisionSecurity, DecisionPerformance, DecisionUI,
	DecisionTesting, DecisionTooling, DecisionProcess, DecisionNamingConv,
	DecisionCodeStyle, DecisionAPIDesign, DecisionInfrastructure,
}

// ImpactLevel grades how far a decision reaches.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// OutcomeStatus records how a decision worked out.
type OutcomeStatus string

const (
	OutcomeUnknown    OutcomeStatus = "unknown"
	OutcomeSuccessful OutcomeStatus = "successful"
	OutcomeFailed     OutcomeStatus = "failed"
	OutcomeMixed      OutcomeStatus = "mixed"
	OutcomeTooEarly   OutcomeStatus = "too_early"
)

// Alternative is one option that was considered and not chosen.
type Alternative struct {
	Name           string `json:"name"`
	Pros           string `json:"pros,omitempty"`
	Cons           string `json:"cons,omitempty"`
	ReasonRejected string `json:"reason_rejected,omitempty"`
}

// Decision is a recorded technical choice. Immutable after creation except
// for the outcome fields, which decision_update appends.
type Decision struct {
	ID                 string        `json:"id"`
	ProjectID          string        `json:"project_id"`
	Type               DecisionType  `json:"decision_type"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Rationale          string        `json:"rationale"`
	ImpactLevel        ImpactLevel   `json:"impact_level"`
	Alternatives       []Alternative `json:"alternatives_considered,omitempty"`
	ProblemStatement   string        `json:"problem_statement,omitempty"`
	AffectedComponents []string      `json:"affected_components,omitempty"`
	Tags               []string      `json:"tags,omitempty"`
	OutcomeStatus      OutcomeStatus `json:"outcome_status"`
	OutcomeNotes       string        `json:"outcome_notes,omitempty"`
	LessonsLearned     string        `json:"lessons_learned,omitempty"`
	DecisionDate       time.Time     `json:"decision_date"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// ValidDecisionType reports whether t is in the closed type set.
func ValidDecisionType(t DecisionType) bool {
	for _, dt := range DecisionTypes {
		if t == dt {
			return true
		}
	}
	return false
}

// ValidImpactLevel reports whether l is a known impact level.
func ValidImpactLevel(l ImpactLevel) bool {
	switch l {
	case ImpactLow, ImpactMedium, ImpactHigh, ImpactCritical:
		return true
	}
	return false
}

// ValidOutcomeStatus reports whether s is a known outcome status.
func ValidOutcomeStatus(s OutcomeStatus) bool {
	switch s {
	case OutcomeUnknown, OutcomeSuccessful, OutcomeFailed, OutcomeMixed, OutcomeTooEarly:
		return true
	}
	return false
}

// Validate checks the fields required at record time.
func (d *Decision) Validate() error {
	if !ValidDecisionType(d.Type) {
		return fmt.Errorf("invalid decision type: %q", d.Type)
	}
	if d.Title == "" {
		return fmt.Errorf("title is required")
	}
	if d.Description == "" {
		return fmt.Errorf("description is required")
	}
	if d.Rationale == "" {
		return fmt.Errorf("rationale is required")
	}
	if !ValidImpactLevel(d.ImpactLevel) {
		return fmt.Errorf("invalid impact level: %q", d.ImpactLevel)
	}
	return nil
}

// DecisionStats is the aggregate returned by decision_stats.
type DecisionStats struct {
	Total       int            `json:"total"`
	ByType      map[string]int `json:"by_type"`
	ByStatus    map[string]int `json:"by_status"`
	ByImpact    map[string]int `json:"by_impact"`
	SuccessRate float64        `json:"success_rate"`
}
