package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/engine"
	"github.com/HendryAvila/specgate/internal/specs"
)

// CreateProjectTool handles the create_project MCP tool.
type CreateProjectTool struct {
	engine *engine.Engine
}

// NewCreateProjectTool creates a CreateProjectTool.
func NewCreateProjectTool(e *engine.Engine) *CreateProjectTool {
	return &CreateProjectTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("create_project",
		mcp.WithDescription(
			"Create a project in the discovery phase. Calling it again with the same "+
				"project_id returns the existing project unchanged.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Stable identifier for the project, e.g. 'artisan-market'"),
		),
		mcp.WithString("name",
			mcp.Description("Human-readable project name"),
		),
	)
}

// Handle processes the create_project tool call.
func (t *CreateProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	p, err := t.engine.CreateProject(ctx, id, req.GetString("name", ""))
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Project Ready\n\n"+
			"**ID:** `%s`\n"+
			"**Name:** %s\n"+
			"**Phase:** %s\n"+
			"**Created:** %s\n\n"+
			"Next: record facts with `propose_specification` or `ingest_answer`, "+
			"then check progress with `get_maturity`.",
		p.ID, p.Name, p.CurrentPhase, p.CreatedAt,
	)), nil
}

// ListSpecificationsTool handles the list_specifications MCP tool.
type ListSpecificationsTool struct {
	engine *engine.Engine
}

// NewListSpecificationsTool creates a ListSpecificationsTool.
func NewListSpecificationsTool(e *engine.Engine) *ListSpecificationsTool {
	return &ListSpecificationsTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ListSpecificationsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_specifications",
		mcp.WithDescription(
			"List a project's specifications. By default only current facts are shown; "+
				"set include_history to also see superseded versions.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("category",
			mcp.Description("Restrict to one category"),
			mcp.Enum(categoryEnum()...),
		),
		mcp.WithBoolean("include_history",
			mcp.Description("Include superseded specifications. Default: false"),
		),
	)
}

// Handle processes the list_specifications tool call.
func (t *ListSpecificationsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	cat := specs.Category(req.GetString("category", ""))
	history := req.GetBool("include_history", false)

	all, err := t.engine.ListSpecifications(ctx, id, cat, history)
	if err != nil {
		return failure(err)
	}
	if len(all) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No specifications recorded for `%s` yet.", id)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Specifications: %s\n\n", id)
	b.WriteString("| Category | Key | Value | Confidence | Current | ID |\n")
	b.WriteString("|----------|-----|-------|------------|---------|----|\n")
	for _, sp := range all {
		current := "yes"
		if !sp.IsCurrent {
			current = "superseded by `" + sp.SupersededBy + "`"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %.2f | %s | `%s` |\n",
			sp.Category, sp.Key, cell(sp.Value), sp.Confidence, current, sp.ID)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// StatusTool handles the get_status MCP tool.
type StatusTool struct {
	engine *engine.Engine
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(e *engine.Engine) *StatusTool {
	return &StatusTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("get_status",
		mcp.WithDescription(
			"One-call overview of a project: phase, overall maturity, pending conflicts, "+
				"open architecture issues and the most urgent gaps.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
	)
}

// Handle processes the get_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	st, err := t.engine.Status(ctx, id)
	if err != nil {
		return failure(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Project Status: %s\n\n", st.Project.ID)
	fmt.Fprintf(&b, "**Phase:** %s\n", st.Project.CurrentPhase)
	if st.NextPhase != "" {
		fmt.Fprintf(&b, "**Next phase:** %s\n", st.NextPhase)
	}
	fmt.Fprintf(&b, "**Overall maturity:** %s / 100\n", score(st.Maturity.OverallScore))
	fmt.Fprintf(&b, "**Readiness:** %s%%\n\n", score(st.Maturity.Readiness))

	fmt.Fprintf(&b, "## Pending Conflicts (%d)\n\n", len(st.PendingConflicts))
	for _, c := range st.PendingConflicts {
		fmt.Fprintf(&b, "- `%s` %s (%s): %s\n", c.ID, c.Category, c.ConflictType, c.Explanation)
	}
	fmt.Fprintf(&b, "\n## Open Architecture Issues (%d)\n\n", len(st.OpenIssues))
	for _, i := range st.OpenIssues {
		fmt.Fprintf(&b, "- `%s` %s\n", i.ID, i.Summary)
	}
	fmt.Fprintf(&b, "\n## Gaps (%d)\n\n", len(st.Gaps))
	for _, g := range st.Gaps {
		fmt.Fprintf(&b, "- **%s** [%s] %s / %s\n", g.Category, g.Priority, score(g.Completeness), score(g.Target))
	}
	return mcp.NewToolResultText(b.String()), nil
}
