package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/engine"
	"github.com/HendryAvila/specgate/internal/specs"
)

// ResolveConflictTool handles the resolve_conflict MCP tool.
type ResolveConflictTool struct {
	engine *engine.Engine
}

// NewResolveConflictTool creates a ResolveConflictTool.
func NewResolveConflictTool(e *engine.Engine) *ResolveConflictTool {
	return &ResolveConflictTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ResolveConflictTool) Definition() mcp.Tool {
	return mcp.NewTool("resolve_conflict",
		mcp.WithDescription(
			"Settle a pending conflict with the user's decision. keep_old, replace and merge "+
				"release the category; clarify keeps it locked while a follow-up question is asked.",
		),
		mcp.WithString("conflict_id", mcp.Required(), mcp.Description("ID of the pending conflict")),
		mcp.WithString("resolution",
			mcp.Required(),
			mcp.Description("The user's decision"),
			mcp.Enum(
				string(specs.ResolutionKeepOld),
				string(specs.ResolutionReplace),
				string(specs.ResolutionMerge),
				string(specs.ResolutionClarify),
			),
		),
		mcp.WithString("clarification",
			mcp.Description("Merged wording. Required for merge"),
		),
	)
}

// Handle processes the resolve_conflict tool call.
func (t *ResolveConflictTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "conflict_id")
	if bad != nil {
		return bad, nil
	}
	resolution := specs.Resolution(req.GetString("resolution", ""))
	res, err := t.engine.ResolveConflict(ctx, id, resolution, strings.TrimSpace(req.GetString("clarification", "")))
	if err != nil {
		return failure(err)
	}

	c := res.Conflict
	var b strings.Builder
	if !res.Released {
		b.WriteString("# Clarification Requested\n\n")
		fmt.Fprintf(&b, "Conflict `%s` stays pending and %s remains locked (clarification round %d).\n",
			c.ID, c.Category, c.ClarifyCount)
		b.WriteString("Ask the follow-up question, then call `resolve_conflict` again.\n")
		return mcp.NewToolResultText(b.String()), nil
	}
	b.WriteString("# Conflict Resolved\n\n")
	fmt.Fprintf(&b, "**Conflict:** `%s`\n", c.ID)
	fmt.Fprintf(&b, "**Resolution:** %s\n", c.Resolution)
	fmt.Fprintf(&b, "**Current value:** %s\n", c.ResolvedValue)
	if res.Specification != nil {
		fmt.Fprintf(&b, "**New specification:** `%s`\n", res.Specification.ID)
	}
	fmt.Fprintf(&b, "\n%s is unlocked.\n", c.Category)
	return mcp.NewToolResultText(b.String()), nil
}

// ListConflictsTool handles the list_conflicts MCP tool.
type ListConflictsTool struct {
	engine *engine.Engine
}

// NewListConflictsTool creates a ListConflictsTool.
func NewListConflictsTool(e *engine.Engine) *ListConflictsTool {
	return &ListConflictsTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ListConflictsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_conflicts",
		mcp.WithDescription("List a project's conflicts in detection order."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("status",
			mcp.Description("Filter by status. Omit for all"),
			mcp.Enum(string(specs.StatusPending), string(specs.StatusResolved)),
		),
	)
}

// Handle processes the list_conflicts tool call.
func (t *ListConflictsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	all, err := t.engine.ListConflicts(ctx, id, specs.ConflictStatus(req.GetString("status", "")))
	if err != nil {
		return failure(err)
	}
	if len(all) == 0 {
		return mcp.NewToolResultText("No conflicts."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Conflicts: %s\n\n", id)
	b.WriteString("| ID | Category | Type | Proposed | Status | Resolution |\n")
	b.WriteString("|----|----------|------|----------|--------|------------|\n")
	for _, c := range all {
		res := string(c.Resolution)
		if res == "" {
			res = "—"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s = %s | %s | %s |\n",
			c.ID, c.Category, c.ConflictType, c.ProposedKey, cell(c.ProposedValue), c.Status, res)
	}
	return mcp.NewToolResultText(b.String()), nil
}
