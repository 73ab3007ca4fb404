package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/engine"
)

// ReportIssueTool handles the report_architecture_issue MCP tool.
type ReportIssueTool struct {
	engine *engine.Engine
}

// NewReportIssueTool creates a ReportIssueTool.
func NewReportIssueTool(e *engine.Engine) *ReportIssueTool {
	return &ReportIssueTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ReportIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("report_architecture_issue",
		mcp.WithDescription(
			"Record an unresolved architecture finding. Open findings block the move "+
				"from design to implementation.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("One-line description of the issue")),
	)
}

// Handle processes the report_architecture_issue tool call.
func (t *ReportIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	summary, bad := required(req, "summary")
	if bad != nil {
		return bad, nil
	}
	issue, err := t.engine.ReportArchitectureIssue(ctx, id, summary)
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Architecture Issue Recorded\n\n**ID:** `%s`\n**Summary:** %s\n",
		issue.ID, issue.Summary,
	)), nil
}

// ResolveIssueTool handles the resolve_architecture_issue MCP tool.
type ResolveIssueTool struct {
	engine *engine.Engine
}

// NewResolveIssueTool creates a ResolveIssueTool.
func NewResolveIssueTool(e *engine.Engine) *ResolveIssueTool {
	return &ResolveIssueTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ResolveIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("resolve_architecture_issue",
		mcp.WithDescription("Mark an architecture issue as resolved."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("ID of the open issue")),
	)
}

// Handle processes the resolve_architecture_issue tool call.
func (t *ResolveIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "issue_id")
	if bad != nil {
		return bad, nil
	}
	issue, err := t.engine.ResolveArchitectureIssue(ctx, id)
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Architecture Issue Resolved\n\n**ID:** `%s`\n**Resolved:** %s\n",
		issue.ID, issue.ResolvedAt,
	)), nil
}
