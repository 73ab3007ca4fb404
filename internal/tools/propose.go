package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/conflict"
	"github.com/HendryAvila/specgate/internal/engine"
	"github.com/HendryAvila/specgate/internal/specs"
)

// defaultConfidence applies when the host does not state how sure the user was.
const defaultConfidence = 0.8

// ProposeTool handles the propose_specification MCP tool.
type ProposeTool struct {
	engine *engine.Engine
}

// NewProposeTool creates a ProposeTool.
func NewProposeTool(e *engine.Engine) *ProposeTool {
	return &ProposeTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ProposeTool) Definition() mcp.Tool {
	return mcp.NewTool("propose_specification",
		mcp.WithDescription(
			"Propose one atomic fact about the project. The fact is checked against the "+
				"current specifications of its category. If it contradicts one, a conflict "+
				"is recorded and the category is locked until `resolve_conflict` settles it. "+
				"Otherwise it is committed, superseding any fact with the same key. "+
				"The project is created on first use.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Taxonomy category of the fact"),
			mcp.Enum(categoryEnum()...),
		),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Short label, normalized to snake_case, e.g. 'auth_method'"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("The fact itself, in the user's words"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("How sure the user is, 0 to 1. Default: 0.8"),
		),
		mcp.WithString("source",
			mcp.Description("Where the fact came from. Default: chat"),
			mcp.Enum(string(specs.SourceQuestion), string(specs.SourceChat), string(specs.SourceImport)),
		),
	)
}

// Handle processes the propose_specification tool call.
func (t *ProposeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	p := specs.Proposal{
		ProjectID:  id,
		Category:   specs.Category(req.GetString("category", "")),
		Key:        req.GetString("key", ""),
		Value:      req.GetString("value", ""),
		Confidence: req.GetFloat("confidence", defaultConfidence),
		Source:     specs.Source(req.GetString("source", "")),
	}
	res, err := t.engine.Propose(ctx, p)
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText(renderOutcome(res)), nil
}

func renderOutcome(res *conflict.ProposeResult) string {
	if res.Outcome == conflict.OutcomeConflict {
		return renderConflict(res.Conflict)
	}
	sp := res.Specification
	var b strings.Builder
	b.WriteString("# Specification Committed\n\n")
	fmt.Fprintf(&b, "**ID:** `%s`\n", sp.ID)
	fmt.Fprintf(&b, "**Category:** %s\n", sp.Category)
	fmt.Fprintf(&b, "**Key:** %s\n", sp.Key)
	fmt.Fprintf(&b, "**Value:** %s\n", sp.Value)
	if sp.Supersedes != "" {
		fmt.Fprintf(&b, "**Supersedes:** `%s`\n", sp.Supersedes)
	}
	return b.String()
}

func renderConflict(c *specs.Conflict) string {
	var b strings.Builder
	b.WriteString("# Conflict Detected\n\n")
	fmt.Fprintf(&b, "**Conflict ID:** `%s`\n", c.ID)
	fmt.Fprintf(&b, "**Category:** %s (now locked)\n", c.Category)
	fmt.Fprintf(&b, "**Type:** %s\n", c.ConflictType)
	fmt.Fprintf(&b, "**Existing specification:** `%s`\n", c.OldSpecificationID)
	fmt.Fprintf(&b, "**Proposed:** %s = %s\n", c.ProposedKey, c.ProposedValue)
	if c.Explanation != "" {
		fmt.Fprintf(&b, "**Why:** %s\n", c.Explanation)
	}
	b.WriteString("\nAsk the user how to settle it, then call `resolve_conflict` with one of:\n\n")
	b.WriteString("- `keep_old`: discard the proposal\n")
	b.WriteString("- `replace`: the proposal supersedes the existing fact\n")
	b.WriteString("- `merge`: both are combined; pass the merged wording as `clarification`\n")
	b.WriteString("- `clarify`: ask a follow-up question first; the category stays locked\n")
	return b.String()
}

// IngestTool handles the ingest_answer MCP tool.
type IngestTool struct {
	engine *engine.Engine
}

// NewIngestTool creates an IngestTool.
func NewIngestTool(e *engine.Engine) *IngestTool {
	return &IngestTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *IngestTool) Definition() mcp.Tool {
	return mcp.NewTool("ingest_answer",
		mcp.WithDescription(
			"Extract every specification from a raw user answer and propose each one. "+
				"Items that fail (unknown category, locked category) are reported individually "+
				"without stopping the rest.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("answer",
			mcp.Required(),
			mcp.Description("The user's answer, verbatim"),
		),
	)
}

// Handle processes the ingest_answer tool call.
func (t *IngestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	answer, bad := required(req, "answer")
	if bad != nil {
		return bad, nil
	}
	res, err := t.engine.IngestAnswer(ctx, id, answer)
	if err != nil {
		return failure(err)
	}

	var b strings.Builder
	b.WriteString("# Answer Ingested\n\n")
	fmt.Fprintf(&b, "**Committed:** %d | **Conflicts:** %d | **Failed:** %d\n\n", res.Committed, res.Conflicts, res.Failed)
	if len(res.Items) == 0 {
		b.WriteString("No specifications could be extracted. Ask a more specific question.\n")
		return mcp.NewToolResultText(b.String()), nil
	}
	for _, it := range res.Items {
		p := it.Proposal
		switch {
		case it.Error != "":
			fmt.Fprintf(&b, "- ❌ %s/%s: %s\n", p.Category, p.Key, it.Error)
		case it.Result.Outcome == conflict.OutcomeConflict:
			fmt.Fprintf(&b, "- ⚠️ %s/%s conflicts (`%s`, %s)\n", p.Category, p.Key, it.Result.Conflict.ID, it.Result.Conflict.ConflictType)
		default:
			fmt.Fprintf(&b, "- ✅ %s/%s = %s\n", p.Category, p.Key, p.Value)
		}
	}
	if res.Conflicts > 0 {
		b.WriteString("\nSettle each conflict with `resolve_conflict` before proposing more facts in those categories.\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
