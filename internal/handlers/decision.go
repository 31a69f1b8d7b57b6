package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/registry"
	"github.com/aidisdev/aidis/internal/store"
	"github.com/aidisdev/aidis/pkg/models"
)

// DecisionRecord implements decision_record.
func (h *Handlers) DecisionRecord(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	d := &models.Decision{
		ProjectID:          projectID,
		Type:               models.DecisionType(stringArg(req.Args, "decisionType")),
		Title:              stringArg(req.Args, "title"),
		Description:        stringArg(req.Args, "description"),
		Rationale:          stringArg(req.Args, "rationale"),
		ImpactLevel:        models.ImpactLevel(stringArg(req.Args, "impactLevel")),
		ProblemStatement:   stringArg(req.Args, "problemStatement"),
		AffectedComponents: stringSliceArg(req.Args, "affectedComponents"),
		Tags:               stringSliceArg(req.Args, "tags"),
		Alternatives:       alternativesArg(req.Args),
	}

	if err := h.stores.Decisions.Insert(ctx, d); err != nil {
		return nil, err
	}

	h.logger.Info(ctx, "decision recorded", "decision_id", d.ID, "type", string(d.Type), "impact", string(d.ImpactLevel))
	text := fmt.Sprintf("Recorded %s decision %q (%s, impact %s)", d.Type, d.Title, d.ID, d.ImpactLevel)
	return models.StructuredResult(text, d), nil
}

func alternativesArg(args map[string]any) []models.Alternative {
	raw, ok := args["alternativesConsidered"].([]any)
	if !ok {
		return nil
	}
	out := make([]models.Alternative, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		alt := models.Alternative{}
		if v, ok := m["name"].(string); ok {
			alt.Name = v
		}
		if v, ok := m["pros"].(string); ok {
			alt.Pros = v
		}
		if v, ok := m["cons"].(string); ok {
			alt.Cons = v
		}
		if v, ok := m["reasonRejected"].(string); ok {
			alt.ReasonRejected = v
		}
		out = append(out, alt)
	}
	return out
}

// DecisionSearch implements decision_search.
func (h *Handlers) DecisionSearch(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	results, err := h.stores.Decisions.Search(ctx, store.DecisionFilter{
		ProjectID: projectID,
		Query:     stringArg(req.Args, "query"),
		Type:      models.DecisionType(stringArg(req.Args, "decisionType")),
		Impact:    models.ImpactLevel(stringArg(req.Args, "impactLevel")),
		Status:    models.OutcomeStatus(stringArg(req.Args, "outcomeStatus")),
		Tags:      stringSliceArg(req.Args, "tags"),
		Limit:     intArg(req.Args, "limit", 20),
	})
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %s in project %s\n", plural(len(results), "decision"), projectID)
	for i, d := range results {
		fmt.Fprintf(&sb, "%d. [%s, %s, %s] %s\n", i+1, d.Type, d.ImpactLevel, d.OutcomeStatus, d.Title)
	}
	return models.StructuredResult(sb.String(), results), nil
}

// DecisionUpdate implements decision_update. Only the outcome fields are
// mutable; the store enforces that by construction.
func (h *Handlers) DecisionUpdate(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	status := models.OutcomeStatus(stringArg(req.Args, "outcomeStatus"))
	if status != "" && !models.ValidOutcomeStatus(status) {
		return nil, errs.InvalidParams("invalid outcome status: %q", status)
	}

	d, err := h.stores.Decisions.UpdateOutcome(ctx,
		stringArg(req.Args, "decisionId"), projectID,
		status,
		stringArg(req.Args, "outcomeNotes"),
		stringArg(req.Args, "lessonsLearned"))
	if err != nil {
		return nil, err
	}

	h.logger.Info(ctx, "decision outcome updated", "decision_id", d.ID, "outcome", string(d.OutcomeStatus))
	return models.StructuredResult(fmt.Sprintf("Updated outcome of %q to %s", d.Title, d.OutcomeStatus), d), nil
}

// DecisionStats implements decision_stats.
func (h *Handlers) DecisionStats(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	stats, err := h.stores.Decisions.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Decision stats for project %s: %d total, success rate %.0f%%\n",
		projectID, stats.Total, stats.SuccessRate)
	sb.WriteString(formatCountMap("by type", stats.ByType))
	sb.WriteString(formatCountMap("by status", stats.ByStatus))
	sb.WriteString(formatCountMap("by impact", stats.ByImpact))
	return models.StructuredResult(sb.String(), stats), nil
}

// DecisionDelete implements decision_delete.
func (h *Handlers) DecisionDelete(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	decisionID := stringArg(req.Args, "decisionId")
	if err := h.stores.Decisions.Delete(ctx, decisionID, projectID); err != nil {
		return nil, err
	}
	h.logger.Info(ctx, "decision deleted", "decision_id", decisionID)
	return models.TextResult(fmt.Sprintf("Deleted decision %s", decisionID)), nil
}

func formatCountMap(label string, counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s:", label)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%d", k, counts[k])
	}
	sb.WriteByte('\n')
	return sb.String()
}
