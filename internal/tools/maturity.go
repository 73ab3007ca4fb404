package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/engine"
)

// MaturityTool handles the get_maturity MCP tool.
type MaturityTool struct {
	engine *engine.Engine
}

// NewMaturityTool creates a MaturityTool.
func NewMaturityTool(e *engine.Engine) *MaturityTool {
	return &MaturityTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *MaturityTool) Definition() mcp.Tool {
	return mcp.NewTool("get_maturity",
		mcp.WithDescription(
			"Score every category 0-100 against the checklist of the project's current phase, "+
				"with a weighted overall score and readiness against a target.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithNumber("target",
			mcp.Description("Readiness target score (0-100]. Default: configured target"),
		),
	)
}

// Handle processes the get_maturity tool call.
func (t *MaturityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	r, err := t.engine.Maturity(ctx, id, req.GetFloat("target", 0))
	if err != nil {
		return failure(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Maturity: %s (%s)\n\n", r.ProjectID, r.Phase)
	fmt.Fprintf(&b, "**Overall:** %s / 100\n", score(r.OverallScore))
	fmt.Fprintf(&b, "**Readiness:** %s%% of target %s\n\n", score(r.Readiness), score(r.Target))
	b.WriteString("| Category | Score | Weight | Specs | Uncovered facets |\n")
	b.WriteString("|----------|-------|--------|-------|------------------|\n")
	for _, c := range r.Categories {
		var missing []string
		for _, f := range c.Facets {
			if !f.Covered {
				missing = append(missing, f.Facet)
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %.1f | %d | %s |\n",
			c.Category, score(c.Score), c.Weight, c.Specifications, list(missing))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// GapReportTool handles the get_gap_report MCP tool.
type GapReportTool struct {
	engine *engine.Engine
}

// NewGapReportTool creates a GapReportTool.
func NewGapReportTool(e *engine.Engine) *GapReportTool {
	return &GapReportTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *GapReportTool) Definition() mcp.Tool {
	return mcp.NewTool("get_gap_report",
		mcp.WithDescription(
			"List the categories below target, most urgent first, with the checklist items "+
				"still missing and the specifications too vague to count. Use it to pick the "+
				"next questions to ask.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithNumber("target",
			mcp.Description("Target score (0-100]. Default: configured target"),
		),
	)
}

// Handle processes the get_gap_report tool call.
func (t *GapReportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	gaps, err := t.engine.GapReport(ctx, id, req.GetFloat("target", 0))
	if err != nil {
		return failure(err)
	}
	if len(gaps) == 0 {
		return mcp.NewToolResultText("No gaps: every category meets its target."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Gap Report: %s\n\n", id)
	for i, g := range gaps {
		fmt.Fprintf(&b, "## %d. %s [%s]\n\n", i+1, g.Category, g.Priority)
		fmt.Fprintf(&b, "- Completeness: %s / %s\n", score(g.Completeness), score(g.Target))
		fmt.Fprintf(&b, "- Missing: %s\n", list(g.MissingItems))
		if len(g.VagueItems) > 0 {
			fmt.Fprintf(&b, "- Too vague: %s\n", list(g.VagueItems))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
