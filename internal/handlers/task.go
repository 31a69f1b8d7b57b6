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

// TaskCreate implements task_create.
func (h *Handlers) TaskCreate(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	t := &models.Task{
		ProjectID:    projectID,
		Title:        stringArg(req.Args, "title"),
		Description:  stringArg(req.Args, "description"),
		Type:         stringArg(req.Args, "type"),
		Priority:     models.TaskPriority(stringArg(req.Args, "priority")),
		AssignedTo:   stringArg(req.Args, "assignedTo"),
		CreatedBy:    stringArg(req.Args, "createdBy"),
		Tags:         stringSliceArg(req.Args, "tags"),
		Dependencies: stringSliceArg(req.Args, "dependencies"),
		Metadata:     mapArg(req.Args, "metadata"),
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}

	if err := h.stores.Tasks.Insert(ctx, t); err != nil {
		return nil, err
	}

	h.logger.Info(ctx, "task created", "task_id", t.ID, "project_id", projectID, "priority", string(t.Priority))
	return models.StructuredResult(fmt.Sprintf("Created task %q (%s, %s priority)", t.Title, t.ID, t.Priority), t), nil
}

// TaskList implements task_list. The status argument accepts a single
// status or a comma-separated list.
func (h *Handlers) TaskList(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	statuses, err := parseStatuses(stringArg(req.Args, "status"))
	if err != nil {
		return nil, err
	}

	tasks, err := h.stores.Tasks.List(ctx, store.TaskFilter{
		ProjectID:  projectID,
		Statuses:   statuses,
		Priority:   models.TaskPriority(stringArg(req.Args, "priority")),
		Tags:       stringSliceArg(req.Args, "tags"),
		AssignedTo: stringArg(req.Args, "assignedTo"),
		Type:       stringArg(req.Args, "type"),
		Phase:      stringArg(req.Args, "phase"),
	})
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s in project %s\n", plural(len(tasks), "task"), projectID)
	for _, t := range tasks {
		fmt.Fprintf(&sb, "- [%s/%s] %s (%s)", t.Status, t.Priority, t.Title, t.ID)
		if t.AssignedTo != "" {
			fmt.Fprintf(&sb, " -> %s", t.AssignedTo)
		}
		sb.WriteByte('\n')
	}
	return models.StructuredResult(sb.String(), tasks), nil
}

func parseStatuses(raw string) ([]models.TaskStatus, error) {
	if raw == "" {
		return nil, nil
	}
	var out []models.TaskStatus
	for _, part := range strings.Split(raw, ",") {
		st := models.TaskStatus(strings.TrimSpace(part))
		if !models.ValidTaskStatus(st) {
			return nil, errs.InvalidParams("invalid status %q", st)
		}
		out = append(out, st)
	}
	return out, nil
}

// TaskUpdate implements task_update.
func (h *Handlers) TaskUpdate(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	upd := store.TaskUpdate{
		Status:   models.TaskStatus(stringArg(req.Args, "status")),
		Metadata: mapArg(req.Args, "metadata"),
	}
	if hasArg(req.Args, "assignedTo") {
		assignee := stringArg(req.Args, "assignedTo")
		upd.AssignedTo = &assignee
	}

	t, err := h.stores.Tasks.Update(ctx, stringArg(req.Args, "taskId"), projectID, upd)
	if err != nil {
		return nil, err
	}

	h.logger.Info(ctx, "task updated", "task_id", t.ID, "status", string(t.Status))
	return models.StructuredResult(fmt.Sprintf("Task %q is now %s", t.Title, t.Status), t), nil
}

// TaskDetails implements task_details.
func (h *Handlers) TaskDetails(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	t, err := h.stores.Tasks.Get(ctx, stringArg(req.Args, "taskId"), stringArg(req.Args, "projectId"))
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Task %q (%s)\n  status: %s\n  priority: %s\n  project: %s\n",
		t.Title, t.ID, t.Status, t.Priority, t.ProjectID)
	if t.Description != "" {
		fmt.Fprintf(&sb, "  description: %s\n", t.Description)
	}
	if t.AssignedTo != "" {
		fmt.Fprintf(&sb, "  assignee: %s\n", t.AssignedTo)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&sb, "  tags: %s\n", strings.Join(t.Tags, ", "))
	}
	if len(t.Dependencies) > 0 {
		fmt.Fprintf(&sb, "  depends on: %s\n", strings.Join(t.Dependencies, ", "))
	}
	if t.StartedAt != nil {
		fmt.Fprintf(&sb, "  started: %s\n", t.StartedAt.Format("2006-01-02 15:04"))
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(&sb, "  completed: %s\n", t.CompletedAt.Format("2006-01-02 15:04"))
	}
	return models.StructuredResult(sb.String(), t), nil
}

// TaskBulkUpdate implements task_bulk_update. The store runs every update
// in one transaction; a single bad task rolls back the whole batch and the
// result reports zero successes.
func (h *Handlers) TaskBulkUpdate(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	ids := stringSliceArg(req.Args, "task_ids")
	upd := store.TaskUpdate{
		Status:   models.TaskStatus(stringArg(req.Args, "status")),
		Metadata: mapArg(req.Args, "metadata"),
	}
	if hasArg(req.Args, "assignedTo") {
		assignee := stringArg(req.Args, "assignedTo")
		upd.AssignedTo = &assignee
	}

	result, err := h.stores.Tasks.BulkUpdate(ctx, ids, projectID, upd)
	if err != nil {
		if result == nil {
			return nil, err
		}
		// The batch rolled back: report the zero-success outcome with the
		// failure reason rather than a bare error.
		h.logger.Warn(ctx, "bulk update rolled back", "requested", result.TotalRequested, "error", err)
		text := fmt.Sprintf("Bulk update rolled back: %s. 0 of %d tasks updated.",
			errs.MessageOf(err), result.TotalRequested)
		return models.StructuredResult(text, result), nil
	}

	h.logger.Info(ctx, "bulk update applied", "updated", result.SuccessfullyUpdated)
	text := fmt.Sprintf("Updated %d of %d tasks to %s",
		result.SuccessfullyUpdated, result.TotalRequested, upd.Status)
	return models.StructuredResult(text, result), nil
}

// TaskProgressSummary implements task_progress_summary.
func (h *Handlers) TaskProgressSummary(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	groupBy := stringArg(req.Args, "groupBy")
	tasks, err := h.stores.Tasks.List(ctx, store.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	summary := summarizeTasks(tasks, groupBy)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Task progress for project %s grouped by %s: %d/%d completed (%.0f%%)\n",
		projectID, groupBy, summary.Completed, summary.Total, summary.CompletionPct)
	for _, g := range summary.Groups {
		fmt.Fprintf(&sb, "  %s: %d tasks, %.0f%% complete\n", g.Key, g.Total, g.CompletionPct)
	}
	return models.StructuredResult(sb.String(), summary), nil
}

// summarizeTasks buckets tasks along one dimension. The phase of a task is
// the first phase-<value> tag it carries, or "unphased".
func summarizeTasks(tasks []*models.Task, groupBy string) *models.TaskProgressSummary {
	summary := &models.TaskProgressSummary{GroupBy: groupBy, Total: len(tasks)}
	buckets := map[string][]*models.Task{}

	for _, t := range tasks {
		key := groupKey(t, groupBy)
		buckets[key] = append(buckets[key], t)
		if t.Status == models.TaskCompleted {
			summary.Completed++
		}
	}
	if summary.Total > 0 {
		summary.CompletionPct = float64(summary.Completed) / float64(summary.Total) * 100
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		group := models.TaskGroup{Key: key, Total: len(buckets[key]), ByStatus: map[string]int{}}
		completed := 0
		for _, t := range buckets[key] {
			group.ByStatus[string(t.Status)]++
			if t.Status == models.TaskCompleted {
				completed++
			}
		}
		group.CompletionPct = float64(completed) / float64(group.Total) * 100
		summary.Groups = append(summary.Groups, group)
	}
	return summary
}

func groupKey(t *models.Task, groupBy string) string {
	switch groupBy {
	case "status":
		return string(t.Status)
	case "priority":
		return string(t.Priority)
	case "type":
		if t.Type == "" {
			return "untyped"
		}
		return t.Type
	case "assignedTo":
		if t.AssignedTo == "" {
			return "unassigned"
		}
		return t.AssignedTo
	case "phase":
		for _, tag := range t.Tags {
			if rest, ok := strings.CutPrefix(tag, "phase-"); ok {
				return rest
			}
		}
		return "unphased"
	}
	return "all"
}

// TaskDelete implements task_delete.
func (h *Handlers) TaskDelete(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	taskID := stringArg(req.Args, "taskId")
	if err := h.stores.Tasks.Delete(ctx, taskID, projectID); err != nil {
		return nil, err
	}
	h.logger.Info(ctx, "task deleted", "task_id", taskID)
	return models.TextResult(fmt.Sprintf("Deleted task %s", taskID)), nil
}
