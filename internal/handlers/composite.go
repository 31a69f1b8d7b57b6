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

// SmartResult is one ranked hit in a smart_search response. Score is a
// heuristic blend per entity kind, so ordering is stable within a run but
// not guaranteed identical across runs.
type SmartResult struct {
	Kind        string  `json:"kind"`
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// SmartSearch implements smart_search: vector search over contexts plus
// keyword search over decisions and tasks, merged into one ranked list.
func (h *Handlers) SmartSearch(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	query := stringArg(req.Args, "query")
	limit := intArg(req.Args, "limit", 5)

	var results []SmartResult

	vec, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errs.Internal(err, "embedding failed")
	}
	contexts, err := h.stores.Contexts.Search(ctx, store.SearchQuery{
		ProjectID: projectID,
		Embedding: vec,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	for _, c := range contexts {
		results = append(results, SmartResult{
			Kind:        "context",
			ID:          c.ID,
			Title:       summarize(c.Content, 80),
			Score:       c.Similarity,
			Explanation: fmt.Sprintf("%s context with %.0f%% semantic similarity", c.Type, c.Similarity),
		})
	}

	decisions, err := h.stores.Decisions.Search(ctx, store.DecisionFilter{
		ProjectID: projectID,
		Query:     query,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	for _, d := range decisions {
		score := 60.0
		if strings.Contains(strings.ToLower(d.Title), strings.ToLower(query)) {
			score = 80
		}
		results = append(results, SmartResult{
			Kind:        "decision",
			ID:          d.ID,
			Title:       d.Title,
			Score:       score,
			Explanation: fmt.Sprintf("%s decision (%s impact) matching the query text", d.Type, d.ImpactLevel),
		})
	}

	tasks, err := h.stores.Tasks.List(ctx, store.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	lowered := strings.ToLower(query)
	matched := 0
	for _, t := range tasks {
		if matched >= limit {
			break
		}
		if !strings.Contains(strings.ToLower(t.Title), lowered) &&
			!strings.Contains(strings.ToLower(t.Description), lowered) {
			continue
		}
		matched++
		score := 50.0
		if t.Status == models.TaskInProgress {
			score += 15
		}
		results = append(results, SmartResult{
			Kind:        "task",
			ID:          t.ID,
			Title:       t.Title,
			Score:       score,
			Explanation: fmt.Sprintf("%s task (%s priority) matching the query text", t.Status, t.Priority),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Smart search for %q found %s across contexts, decisions and tasks\n",
		query, plural(len(results), "result"))
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. [%s, %.0f] %s (%s)\n", i+1, r.Kind, r.Score, r.Title, r.Explanation)
	}
	return models.StructuredResult(sb.String(), results), nil
}

// Recommendation is one suggested next step from get_recommendations.
type Recommendation struct {
	Priority    string `json:"priority"`
	Action      string `json:"action"`
	Explanation string `json:"explanation"`
}

// GetRecommendations implements get_recommendations: heuristics over open
// tasks, recent contexts and decision outcomes.
func (h *Handlers) GetRecommendations(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}
	limit := intArg(req.Args, "limit", 5)

	tasks, err := h.stores.Tasks.List(ctx, store.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	decStats, err := h.stores.Decisions.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ctxStats, err := h.stores.Contexts.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var recs []Recommendation

	var blocked, urgent, inProgress int
	for _, t := range tasks {
		switch {
		case t.Status == models.TaskBlocked:
			blocked++
		case t.Status == models.TaskInProgress:
			inProgress++
		}
		if t.Priority == models.PriorityUrgent && t.Status != models.TaskCompleted && t.Status != models.TaskCancelled {
			urgent++
		}
	}

	if blocked > 0 {
		recs = append(recs, Recommendation{
			Priority:    "high",
			Action:      fmt.Sprintf("Unblock %s", plural(blocked, "task")),
			Explanation: "blocked tasks stall everything that depends on them",
		})
	}
	if urgent > 0 {
		recs = append(recs, Recommendation{
			Priority:    "high",
			Action:      fmt.Sprintf("Finish %s marked urgent", plural(urgent, "open task")),
			Explanation: "urgent tasks should not sit open",
		})
	}
	if inProgress > 3 {
		recs = append(recs, Recommendation{
			Priority:    "medium",
			Action:      fmt.Sprintf("Reduce work in progress (%d tasks in flight)", inProgress),
			Explanation: "a wide in-progress set usually means context switching",
		})
	}
	for status, n := range decStats.ByStatus {
		if status == string(models.OutcomeUnknown) && n > 0 {
			recs = append(recs, Recommendation{
				Priority:    "medium",
				Action:      fmt.Sprintf("Record outcomes for %s", plural(n, "decision")),
				Explanation: "decisions without outcomes teach nothing; use decision_update",
			})
		}
	}
	if ctxStats.Recent24h == 0 && ctxStats.Total > 0 {
		recs = append(recs, Recommendation{
			Priority:    "low",
			Action:      "Store fresh context for today's work",
			Explanation: "no context has been stored in the last 24 hours",
		})
	}
	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			Priority:    "low",
			Action:      "Keep going",
			Explanation: "no blocked, urgent or outcome-less items found",
		})
	}
	if len(recs) > limit {
		recs = recs[:limit]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s for project %s\n", plural(len(recs), "recommendation"), projectID)
	for i, r := range recs {
		fmt.Fprintf(&sb, "%d. [%s] %s (%s)\n", i+1, r.Priority, r.Action, r.Explanation)
	}
	return models.StructuredResult(sb.String(), recs), nil
}

// ProjectInsights implements project_insights: one cross-entity health
// report built from the per-domain stats handlers' stores.
func (h *Handlers) ProjectInsights(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	ctxStats, err := h.stores.Contexts.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}
	decStats, err := h.stores.Decisions.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := h.stores.Tasks.List(ctx, store.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	taskSummary := summarizeTasks(tasks, "status")

	insights := map[string]any{
		"projectId": projectID,
		"contexts": map[string]any{
			"total":     ctxStats.Total,
			"recent24h": ctxStats.Recent24h,
			"byType":    ctxStats.ByType,
		},
		"decisions": map[string]any{
			"total":       decStats.Total,
			"successRate": decStats.SuccessRate,
			"byStatus":    decStats.ByStatus,
		},
		"tasks": map[string]any{
			"total":         taskSummary.Total,
			"completed":     taskSummary.Completed,
			"completionPct": taskSummary.CompletionPct,
			"byStatus":      taskSummary.Groups,
		},
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Insights for project %s\n", projectID)
	fmt.Fprintf(&sb, "  contexts: %d total, %d in the last 24h\n", ctxStats.Total, ctxStats.Recent24h)
	fmt.Fprintf(&sb, "  decisions: %d total, %.0f%% success rate\n", decStats.Total, decStats.SuccessRate)
	fmt.Fprintf(&sb, "  tasks: %d/%d completed (%.0f%%)\n",
		taskSummary.Completed, taskSummary.Total, taskSummary.CompletionPct)
	for _, g := range taskSummary.Groups {
		fmt.Fprintf(&sb, "    %s: %d\n", g.Key, g.Total)
	}
	return models.StructuredResult(sb.String(), insights), nil
}
