package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/registry"
	"github.com/aidisdev/aidis/pkg/models"
)

// ProjectList implements project_list.
func (h *Handlers) ProjectList(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projects, err := h.stores.Projects.List(ctx, boolArg(req.Args, "includeStats"))
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", plural(len(projects), "project"))
	for _, p := range projects {
		fmt.Fprintf(&sb, "- %s (%s, %s)", p.Name, p.ID, p.Status)
		if p.Stats != nil {
			fmt.Fprintf(&sb, ": %d contexts, %d decisions, %d tasks, %d sessions",
				p.Stats.ContextCount, p.Stats.DecisionCount, p.Stats.TaskCount, p.Stats.SessionCount)
		}
		sb.WriteByte('\n')
	}
	return models.StructuredResult(sb.String(), projects), nil
}

// ProjectCreate implements project_create. Duplicate names surface as
// Conflict from the unique constraint.
func (h *Handlers) ProjectCreate(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	p := &models.Project{
		Name:          stringArg(req.Args, "name"),
		Description:   stringArg(req.Args, "description"),
		GitRepoURL:    stringArg(req.Args, "gitRepoUrl"),
		RootDirectory: stringArg(req.Args, "rootDirectory"),
		Metadata:      mapArg(req.Args, "metadata"),
		Status:        models.ProjectActive,
	}

	if err := h.stores.Projects.Create(ctx, p); err != nil {
		if errs.KindOf(err) == errs.KindConflict {
			return nil, errs.Conflict("project %q already exists", p.Name)
		}
		return nil, err
	}

	h.logger.Info(ctx, "project created", "project_id", p.ID, "name", p.Name)
	return models.StructuredResult(fmt.Sprintf("Created project %q (%s)", p.Name, p.ID), p), nil
}

// ProjectSwitch implements project_switch via the three-phase state
// machine. Failures carry a troubleshooting hint chosen by error kind.
func (h *Handlers) ProjectSwitch(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	target := stringArg(req.Args, "project")

	p, err := h.state.SwitchProject(ctx, req.CallerID, target)
	if err != nil {
		return nil, withSwitchHint(err)
	}

	return models.StructuredResult(fmt.Sprintf("Switched to project %q (%s)", p.Name, p.ID), p), nil
}

// withSwitchHint appends a per-kind troubleshooting hint to switch errors.
func withSwitchHint(err error) error {
	var hint string
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		hint = "run project_list to see available projects"
	case errs.KindPreSwitchValidationFailed:
		hint = "check project_info for the target's status"
	case errs.KindAtomicSwitchFailed:
		hint = "the previous project is still current; retry the switch"
	default:
		return err
	}
	return errs.New(errs.KindOf(err), "%s (%s)", errs.MessageOf(err), hint)
}

// ProjectCurrent implements project_current.
func (h *Handlers) ProjectCurrent(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	p, err := h.state.CurrentProject(ctx, req.CallerID)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return nil, errs.NotFound("no projects exist yet; create one with project_create")
		}
		return nil, err
	}
	return models.StructuredResult(fmt.Sprintf("Current project: %q (%s)", p.Name, p.ID), p), nil
}

// ProjectInfo implements project_info.
func (h *Handlers) ProjectInfo(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	p, err := h.stores.Projects.Resolve(ctx, stringArg(req.Args, "project"))
	if err != nil {
		return nil, err
	}

	// Attach entity counts the same way project_list(includeStats) does.
	listed, err := h.stores.Projects.List(ctx, true)
	if err != nil {
		return nil, err
	}
	for _, candidate := range listed {
		if candidate.ID == p.ID {
			p = candidate
			break
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Project %q (%s)\n  status: %s\n  created: %s\n",
		p.Name, p.ID, p.Status, p.CreatedAt.Format("2006-01-02"))
	if p.Description != "" {
		fmt.Fprintf(&sb, "  description: %s\n", p.Description)
	}
	if p.GitRepoURL != "" {
		fmt.Fprintf(&sb, "  repo: %s\n", p.GitRepoURL)
	}
	if p.RootDirectory != "" {
		fmt.Fprintf(&sb, "  root: %s\n", p.RootDirectory)
	}
	if p.Stats != nil {
		fmt.Fprintf(&sb, "  contents: %d contexts, %d decisions, %d tasks, %d sessions\n",
			p.Stats.ContextCount, p.Stats.DecisionCount, p.Stats.TaskCount, p.Stats.SessionCount)
	}
	return models.StructuredResult(sb.String(), p), nil
}

// ProjectDelete implements project_delete. Children cascade in the store.
func (h *Handlers) ProjectDelete(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID := stringArg(req.Args, "projectId")

	if err := h.stores.Projects.Delete(ctx, projectID); err != nil {
		return nil, err
	}
	h.logger.Info(ctx, "project deleted", "project_id", projectID)
	return models.TextResult(fmt.Sprintf("Deleted project %s and everything it owned", projectID)), nil
}
