package registry

// toolSpec is one compile-time catalog entry. Navigation tools are named
// with the "aidis_" prefix here; New substitutes the configured prefix.
type toolSpec struct {
	name        string
	category    string
	description string
	schema      string
	examples    string
}

// Tool categories in display order.
const (
	CategoryNavigation = "System & Navigation"
	CategoryContext    = "Context Management"
	CategoryProject    = "Project Management"
	CategoryDecision   = "Technical Decisions"
	CategoryTask       = "Task Management"
	CategoryComposite  = "Smart Search & Insights"
)

const contextTypeEnum = `["code", "decision", "error", "discussion", "planning", "completion", "milestone", "reflections", "handoff"]`

const decisionTypeEnum = `["architecture", "library", "framework", "database", "deployment", "security", "performance", "ui_ux", "testing", "tooling", "process", "naming_convention", "code_style", "api_design", "infrastructure"]`

const impactLevelEnum = `["low", "medium", "high", "critical"]`

const outcomeStatusEnum = `["unknown", "successful", "failed", "mixed", "too_early"]`

const taskStatusEnum = `["todo", "in_progress", "blocked", "completed", "cancelled"]`

const taskPriorityEnum = `["low", "medium", "high", "urgent"]`

var catalog = []toolSpec{
	// ---- System & Navigation ----
	{
		name:        "aidis_ping",
		category:    CategoryNavigation,
		description: "Test connectivity to the AIDIS server. Echoes back an optional message.",
		schema: `{
			"type": "object",
			"properties": {
				"message": {"type": "string", "description": "Optional message to echo back"}
			},
			"additionalProperties": false
		}`,
		examples: `aidis_ping()
aidis_ping(message="hello")`,
	},
	{
		name:        "aidis_status",
		category:    CategoryNavigation,
		description: "Report server status: version, uptime, database health and session info.",
		schema: `{
			"type": "object",
			"properties": {},
			"additionalProperties": false
		}`,
		examples: `aidis_status()`,
	},
	{
		name:        "aidis_help",
		category:    CategoryNavigation,
		description: "List every available tool, grouped by category.",
		schema: `{
			"type": "object",
			"properties": {},
			"additionalProperties": false
		}`,
		examples: `aidis_help()`,
	},
	{
		name:        "aidis_explain",
		category:    CategoryNavigation,
		description: "Explain one tool: description, parameters and usage notes.",
		schema: `{
			"type": "object",
			"properties": {
				"toolName": {"type": "string", "description": "Name of the tool to explain"}
			},
			"required": ["toolName"],
			"additionalProperties": false
		}`,
		examples: `aidis_explain(toolName="context_search")`,
	},
	{
		name:        "aidis_examples",
		category:    CategoryNavigation,
		description: "Show usage examples for one tool.",
		schema: `{
			"type": "object",
			"properties": {
				"toolName": {"type": "string", "description": "Name of the tool to show examples for"}
			},
			"required": ["toolName"],
			"additionalProperties": false
		}`,
		examples: `aidis_examples(toolName="task_bulk_update")`,
	},

	// ---- Context Management ----
	{
		name:        "context_store",
		category:    CategoryContext,
		description: "Store a piece of development context with semantic indexing for later search.",
		schema: `{
			"type": "object",
			"properties": {
				"content": {"type": "string", "minLength": 1, "maxLength": 10000, "description": "The context content to store"},
				"type": {"type": "string", "enum": ` + contextTypeEnum + `, "description": "Kind of context being stored"},
				"tags": {"type": "array", "items": {"type": "string", "maxLength": 50}, "maxItems": 20, "description": "Tags for filtering"},
				"relevanceScore": {"type": "number", "minimum": 0, "maximum": 10, "description": "Relevance 0-10, default 5"},
				"metadata": {"type": "object", "description": "Free-form metadata"},
				"projectId": {"type": "string", "description": "Target project; defaults to the session project, then the current project"},
				"sessionId": {"type": "string", "description": "Owning session; defaults to the active session"}
			},
			"required": ["content", "type"],
			"additionalProperties": false
		}`,
		examples: `context_store(content="Implemented JWT refresh flow", type="code", tags=["auth","jwt"])
context_store(content="Deploy failed: missing env var", type="error", relevanceScore=8)`,
	},
	{
		name:        "context_search",
		category:    CategoryContext,
		description: "Semantic search over stored contexts in the current (or given) project.",
		schema: `{
			"type": "object",
			"properties": {
				"query": {"type": "string", "minLength": 1, "description": "Natural-language search query"},
				"type": {"type": "string", "enum": ` + contextTypeEnum + `, "description": "Restrict to one context type"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Restrict to contexts carrying any of these tags"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50, "description": "Max results, default 10"},
				"minSimilarity": {"type": "number", "minimum": 0, "maximum": 100, "description": "Similarity percentage floor"},
				"projectId": {"type": "string", "description": "Project to search; defaults to the current project"}
			},
			"required": ["query"],
			"additionalProperties": false
		}`,
		examples: `context_search(query="refresh token implementation", limit=5)
context_search(query="deployment errors", type="error", minSimilarity=60)`,
	},
	{
		name:        "context_get_recent",
		category:    CategoryContext,
		description: "Return the most recently stored contexts, newest first.",
		schema: `{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Max results, default 5"},
				"projectId": {"type": "string", "description": "Project to read; defaults to the current project"}
			},
			"additionalProperties": false
		}`,
		examples: `context_get_recent()
context_get_recent(limit=10)`,
	},
	{
		name:        "context_stats",
		category:    CategoryContext,
		description: "Context statistics for a project: totals, embedded count, last-24h activity, per-type breakdown.",
		schema: `{
			"type": "object",
			"properties": {
				"projectId": {"type": "string", "description": "Project to summarize; defaults to the current project"}
			},
			"additionalProperties": false
		}`,
		examples: `context_stats()`,
	},
	{
		name:        "context_delete",
		category:    CategoryContext,
		description: "Delete one context. Requires both the context id and its project id.",
		schema: `{
			"type": "object",
			"properties": {
				"contextId": {"type": "string", "description": "Context to delete"},
				"projectId": {"type": "string", "description": "Project the context belongs to"}
			},
			"required": ["contextId", "projectId"],
			"additionalProperties": false
		}`,
		examples: `context_delete(contextId="4f8a...", projectId="b219...")`,
	},

	// ---- Project Management ----
	{
		name:        "project_list",
		category:    CategoryProject,
		description: "List all projects, optionally with per-project entity counts.",
		schema: `{
			"type": "object",
			"properties": {
				"includeStats": {"type": "boolean", "description": "Include context/decision/task/session counts"}
			},
			"additionalProperties": false
		}`,
		examples: `project_list()
project_list(includeStats=true)`,
	},
	{
		name:        "project_create",
		category:    CategoryProject,
		description: "Create a new project. Names are unique across all projects.",
		schema: `{
			"type": "object",
			"properties": {
				"name": {"type": "string", "minLength": 1, "description": "Unique project name"},
				"description": {"type": "string", "description": "What this project is"},
				"gitRepoUrl": {"type": "string", "description": "Git repository URL"},
				"rootDirectory": {"type": "string", "description": "Project root on disk"},
				"metadata": {"type": "object", "description": "Free-form metadata"}
			},
			"required": ["name"],
			"additionalProperties": false
		}`,
		examples: `project_create(name="alpha")
project_create(name="billing", description="Billing service rewrite", gitRepoUrl="https://github.com/acme/billing")`,
	},
	{
		name:        "project_switch",
		category:    CategoryProject,
		description: "Switch the current project. Accepts a project name or id; the switch is atomic and verified.",
		schema: `{
			"type": "object",
			"properties": {
				"project": {"type": "string", "minLength": 1, "description": "Project name or id to switch to"}
			},
			"required": ["project"],
			"additionalProperties": false
		}`,
		examples: `project_switch(project="alpha")`,
	},
	{
		name:        "project_current",
		category:    CategoryProject,
		description: "Show the current project, selecting an active one if none is set.",
		schema: `{
			"type": "object",
			"properties": {},
			"additionalProperties": false
		}`,
		examples: `project_current()`,
	},
	{
		name:        "project_info",
		category:    CategoryProject,
		description: "Detailed information about one project, including entity counts.",
		schema: `{
			"type": "object",
			"properties": {
				"project": {"type": "string", "minLength": 1, "description": "Project name or id"}
			},
			"required": ["project"],
			"additionalProperties": false
		}`,
		examples: `project_info(project="alpha")`,
	},
	{
		name:        "project_delete",
		category:    CategoryProject,
		description: "Delete a project and everything it owns. This cascades to contexts, decisions, tasks and sessions.",
		schema: `{
			"type": "object",
			"properties": {
				"projectId": {"type": "string", "minLength": 1, "description": "Id of the project to delete"}
			},
			"required": ["projectId"],
			"additionalProperties": false
		}`,
		examples: `project_delete(projectId="b219...")`,
	},

	// ---- Technical Decisions ----
	{
		name:        "decision_record",
		category:    CategoryDecision,
		description: "Record a technical decision with rationale and alternatives considered.",
		schema: `{
			"type": "object",
			"properties": {
				"decisionType": {"type": "string", "enum": ` + decisionTypeEnum + `, "description": "Kind of decision"},
				"title": {"type": "string", "minLength": 1, "description": "Short decision title"},
				"description": {"type": "string", "minLength": 1, "description": "What was decided"},
				"rationale": {"type": "string", "minLength": 1, "description": "Why this option won"},
				"impactLevel": {"type": "string", "enum": ` + impactLevelEnum + `, "description": "Blast radius of the decision"},
				"alternativesConsidered": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"name": {"type": "string"},
							"pros": {"type": "string"},
							"cons": {"type": "string"},
							"reasonRejected": {"type": "string"}
						},
						"required": ["name"],
						"additionalProperties": false
					},
					"description": "Options that were evaluated and rejected"
				},
				"problemStatement": {"type": "string", "description": "Problem this decision addresses"},
				"affectedComponents": {"type": "array", "items": {"type": "string"}, "description": "Components this touches"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Tags for filtering"},
				"projectId": {"type": "string", "description": "Target project; defaults to the current project"}
			},
			"required": ["decisionType", "title", "description", "rationale", "impactLevel"],
			"additionalProperties": false
		}`,
		examples: `decision_record(decisionType="database", title="Choose Postgres", description="Use Postgres with pgvector", rationale="One store for rows and vectors", impactLevel="high")`,
	},
	{
		name:        "decision_search",
		category:    CategoryDecision,
		description: "Search recorded decisions by free text and structured filters.",
		schema: `{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Free text matched against title, description and rationale"},
				"decisionType": {"type": "string", "enum": ` + decisionTypeEnum + `, "description": "Restrict to one decision type"},
				"impactLevel": {"type": "string", "enum": ` + impactLevelEnum + `, "description": "Restrict to one impact level"},
				"outcomeStatus": {"type": "string", "enum": ` + outcomeStatusEnum + `, "description": "Restrict to one outcome status"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Restrict to decisions carrying any of these tags"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50, "description": "Max results, default 20"},
				"projectId": {"type": "string", "description": "Project to search; defaults to the current project"}
			},
			"additionalProperties": false
		}`,
		examples: `decision_search(query="postgres")
decision_search(decisionType="library", outcomeStatus="failed")`,
	},
	{
		name:        "decision_update",
		category:    CategoryDecision,
		description: "Record the outcome of a decision. Only outcome status, notes and lessons can change.",
		schema: `{
			"type": "object",
			"properties": {
				"decisionId": {"type": "string", "minLength": 1, "description": "Decision to update"},
				"outcomeStatus": {"type": "string", "enum": ` + outcomeStatusEnum + `, "description": "How it worked out"},
				"outcomeNotes": {"type": "string", "description": "Notes on the outcome"},
				"lessonsLearned": {"type": "string", "description": "What to remember next time"},
				"projectId": {"type": "string", "description": "Project the decision belongs to; defaults to the current project"}
			},
			"required": ["decisionId"],
			"additionalProperties": false
		}`,
		examples: `decision_update(decisionId="77af...", outcomeStatus="successful", lessonsLearned="Indexed vectors pay off")`,
	},
	{
		name:        "decision_stats",
		category:    CategoryDecision,
		description: "Decision statistics: counts per type, status and impact, plus the success rate.",
		schema: `{
			"type": "object",
			"properties": {
				"projectId": {"type": "string", "description": "Project to summarize; defaults to the current project"}
			},
			"additionalProperties": false
		}`,
		examples: `decision_stats()`,
	},
	{
		name:        "decision_delete",
		category:    CategoryDecision,
		description: "Delete a recorded decision.",
		schema: `{
			"type": "object",
			"properties": {
				"decisionId": {"type": "string", "minLength": 1, "description": "Decision to delete"},
				"projectId": {"type": "string", "description": "Project the decision belongs to; defaults to the current project"}
			},
			"required": ["decisionId"],
			"additionalProperties": false
		}`,
		examples: `decision_delete(decisionId="77af...")`,
	},

	// ---- Task Management ----
	{
		name:        "task_create",
		category:    CategoryTask,
		description: "Create a task in the current (or given) project.",
		schema: `{
			"type": "object",
			"properties": {
				"title": {"type": "string", "minLength": 1, "description": "Task title"},
				"description": {"type": "string", "description": "What needs doing"},
				"type": {"type": "string", "description": "Free-form task type (feature, bugfix, refactor, ...)"},
				"priority": {"type": "string", "enum": ` + taskPriorityEnum + `, "description": "Priority, default medium"},
				"assignedTo": {"type": "string", "description": "Assignee identifier"},
				"createdBy": {"type": "string", "description": "Creator identifier"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Tags; phase-X tags drive the phase filter"},
				"dependencies": {"type": "array", "items": {"type": "string"}, "description": "Task ids this task depends on (same project)"},
				"metadata": {"type": "object", "description": "Free-form metadata"},
				"projectId": {"type": "string", "description": "Target project; defaults to the current project"}
			},
			"required": ["title"],
			"additionalProperties": false
		}`,
		examples: `task_create(title="Wire refresh tokens", priority="high", tags=["auth","phase-2"])`,
	},
	{
		name:        "task_list",
		category:    CategoryTask,
		description: "List tasks with filters: multi-status, tag-ANY, priority, assignee, type and phase.",
		schema: `{
			"type": "object",
			"properties": {
				"status": {"type": "string", "description": "Status filter; comma-separate for multiple (e.g. \"todo,in_progress\")"},
				"priority": {"type": "string", "enum": ` + taskPriorityEnum + `, "description": "Restrict to one priority"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Match tasks carrying any of these tags"},
				"assignedTo": {"type": "string", "description": "Restrict to one assignee"},
				"type": {"type": "string", "description": "Restrict to one task type"},
				"phase": {"type": "string", "description": "Synthetic filter matching tag phase-<value>"},
				"projectId": {"type": "string", "description": "Project to list; defaults to the current project"}
			},
			"additionalProperties": false
		}`,
		examples: `task_list()
task_list(status="todo,in_progress", phase="2")`,
	},
	{
		name:        "task_update",
		category:    CategoryTask,
		description: "Update a task's status, optionally reassigning it or replacing its metadata.",
		schema: `{
			"type": "object",
			"properties": {
				"taskId": {"type": "string", "minLength": 1, "description": "Task to update"},
				"status": {"type": "string", "enum": ` + taskStatusEnum + `, "description": "New status"},
				"assignedTo": {"type": "string", "description": "New assignee"},
				"metadata": {"type": "object", "description": "Replacement metadata"},
				"projectId": {"type": "string", "description": "Project the task belongs to; defaults to the current project"}
			},
			"required": ["taskId", "status"],
			"additionalProperties": false
		}`,
		examples: `task_update(taskId="91c2...", status="completed")`,
	},
	{
		name:        "task_details",
		category:    CategoryTask,
		description: "Full detail for one task.",
		schema: `{
			"type": "object",
			"properties": {
				"taskId": {"type": "string", "minLength": 1, "description": "Task to show"},
				"projectId": {"type": "string", "description": "Project scope; defaults to any project"}
			},
			"required": ["taskId"],
			"additionalProperties": false
		}`,
		examples: `task_details(taskId="91c2...")`,
	},
	{
		name:        "task_bulk_update",
		category:    CategoryTask,
		description: "Apply one status change to many tasks atomically: either every task updates or none do.",
		schema: `{
			"type": "object",
			"properties": {
				"task_ids": {"type": "array", "items": {"type": "string"}, "minItems": 1, "description": "Tasks to update"},
				"status": {"type": "string", "enum": ` + taskStatusEnum + `, "description": "New status for every listed task"},
				"assignedTo": {"type": "string", "description": "New assignee for every listed task"},
				"metadata": {"type": "object", "description": "Replacement metadata for every listed task"},
				"projectId": {"type": "string", "description": "Project the tasks belong to; defaults to the current project"}
			},
			"required": ["task_ids", "status"],
			"additionalProperties": false
		}`,
		examples: `task_bulk_update(task_ids=["91c2...","b0ff..."], status="completed")`,
	},
	{
		name:        "task_progress_summary",
		category:    CategoryTask,
		description: "Group tasks and report per-group counts, completion percentage and an overall rollup.",
		schema: `{
			"type": "object",
			"properties": {
				"groupBy": {"type": "string", "enum": ["phase", "status", "priority", "type", "assignedTo"], "description": "Grouping dimension"},
				"projectId": {"type": "string", "description": "Project to summarize; defaults to the current project"}
			},
			"required": ["groupBy"],
			"additionalProperties": false
		}`,
		examples: `task_progress_summary(groupBy="phase")`,
	},
	{
		name:        "task_delete",
		category:    CategoryTask,
		description: "Delete a task.",
		schema: `{
			"type": "object",
			"properties": {
				"taskId": {"type": "string", "minLength": 1, "description": "Task to delete"},
				"projectId": {"type": "string", "description": "Project the task belongs to; defaults to the current project"}
			},
			"required": ["taskId"],
			"additionalProperties": false
		}`,
		examples: `task_delete(taskId="91c2...")`,
	},

	// ---- Smart Search & Insights ----
	{
		name:        "smart_search",
		category:    CategoryComposite,
		description: "Search contexts, decisions and tasks together, returning a ranked cross-entity result.",
		schema: `{
			"type": "object",
			"properties": {
				"query": {"type": "string", "minLength": 1, "description": "What to look for"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50, "description": "Max results per entity kind, default 5"},
				"projectId": {"type": "string", "description": "Project to search; defaults to the current project"}
			},
			"required": ["query"],
			"additionalProperties": false
		}`,
		examples: `smart_search(query="authentication")`,
	},
	{
		name:        "get_recommendations",
		category:    CategoryComposite,
		description: "Suggest next steps from open tasks, recent activity and decision outcomes.",
		schema: `{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Max recommendations, default 5"},
				"projectId": {"type": "string", "description": "Project to analyze; defaults to the current project"}
			},
			"additionalProperties": false
		}`,
		examples: `get_recommendations()`,
	},
	{
		name:        "project_insights",
		category:    CategoryComposite,
		description: "Cross-entity health report for a project: activity, task progress, decision outcomes.",
		schema: `{
			"type": "object",
			"properties": {
				"projectId": {"type": "string", "description": "Project to analyze; defaults to the current project"}
			},
			"additionalProperties": false
		}`,
		examples: `project_insights()`,
	},
}
