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

// ContextStore implements context_store: embed the content and persist the
// row in one transaction.
func (h *Handlers) ContextStore(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	sessionID := stringArg(req.Args, "sessionId")
	if sessionID == "" {
		if sess, err := h.state.EnsureSession(ctx, req.CallerID); err == nil {
			sessionID = sess.ID
		}
	}

	c := &models.Context{
		ProjectID:      projectID,
		SessionID:      sessionID,
		Type:           models.ContextType(stringArg(req.Args, "type")),
		Content:        stringArg(req.Args, "content"),
		Tags:           stringSliceArg(req.Args, "tags"),
		RelevanceScore: floatArg(req.Args, "relevanceScore", 5),
		Metadata:       mapArg(req.Args, "metadata"),
	}

	if err := c.Validate(); err != nil {
		return nil, errs.InvalidParams("%v", err)
	}

	vec, err := h.embedder.Embed(ctx, c.Content)
	if err != nil {
		return nil, errs.Internal(err, "embedding failed")
	}
	c.Embedding = vec

	if err := h.stores.Contexts.Insert(ctx, c); err != nil {
		return nil, err
	}

	h.logger.Info(ctx, "context stored", "context_id", c.ID, "project_id", projectID, "type", string(c.Type))
	text := fmt.Sprintf("Stored %s context %s in project %s (%s)",
		c.Type, c.ID, projectID, plural(len(c.Tags), "tag"))
	return models.StructuredResult(text, c), nil
}

// ContextSearch implements context_search: vector top-k over one project.
func (h *Handlers) ContextSearch(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	query := stringArg(req.Args, "query")
	vec, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errs.Internal(err, "embedding failed")
	}

	results, err := h.stores.Contexts.Search(ctx, store.SearchQuery{
		ProjectID:     projectID,
		Embedding:     vec,
		Type:          models.ContextType(stringArg(req.Args, "type")),
		Tags:          stringSliceArg(req.Args, "tags"),
		Limit:         intArg(req.Args, "limit", 10),
		MinSimilarity: floatArg(req.Args, "minSimilarity", 0),
	})
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %s for %q in project %s\n", plural(len(results), "context"), query, projectID)
	for i, c := range results {
		fmt.Fprintf(&sb, "%d. [%s, %.0f%%] %s\n", i+1, c.Type, c.Similarity, summarize(c.Content, 120))
	}
	return models.StructuredResult(sb.String(), results), nil
}

// ContextGetRecent implements context_get_recent.
func (h *Handlers) ContextGetRecent(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	results, err := h.stores.Contexts.Recent(ctx, projectID, intArg(req.Args, "limit", 5))
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s in project %s, newest first\n", plural(len(results), "recent context"), projectID)
	for i, c := range results {
		fmt.Fprintf(&sb, "%d. [%s, %s] %s\n", i+1, c.Type,
			c.CreatedAt.Format("2006-01-02 15:04"), summarize(c.Content, 120))
	}
	return models.StructuredResult(sb.String(), results), nil
}

// ContextStats implements context_stats.
func (h *Handlers) ContextStats(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	projectID, err := h.resolveProjectID(ctx, req)
	if err != nil {
		return nil, err
	}

	stats, err := h.stores.Contexts.Stats(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Context stats for project %s: %d total, %d embedded, %d in the last 24h\n",
		projectID, stats.Total, stats.WithEmbedding, stats.Recent24h)

	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&sb, "  %s: %d\n", t, stats.ByType[t])
	}
	return models.StructuredResult(sb.String(), stats), nil
}

// ContextDelete implements context_delete. Both ids are required so a
// caller cannot delete across project boundaries by accident.
func (h *Handlers) ContextDelete(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
	contextID := stringArg(req.Args, "contextId")
	projectID := stringArg(req.Args, "projectId")

	if err := h.stores.Contexts.Delete(ctx, contextID, projectID); err != nil {
		return nil, err
	}
	h.logger.Info(ctx, "context deleted", "context_id", contextID, "project_id", projectID)
	return models.TextResult(fmt.Sprintf("Deleted context %s from project %s", contextID, projectID)), nil
}

// summarize trims content to a single line of at most n runes.
func summarize(content string, n int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n-1]) + "…"
}
