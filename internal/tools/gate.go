package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/engine"
	"github.com/HendryAvila/specgate/internal/specs"
)

// EvaluateGateTool handles the evaluate_gate MCP tool.
type EvaluateGateTool struct {
	engine *engine.Engine
}

// NewEvaluateGateTool creates an EvaluateGateTool.
func NewEvaluateGateTool(e *engine.Engine) *EvaluateGateTool {
	return &EvaluateGateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *EvaluateGateTool) Definition() mcp.Tool {
	return mcp.NewTool("evaluate_gate",
		mcp.WithDescription(
			"Decide whether a major operation may proceed by comparing the expected cost of "+
				"proceeding with the current gaps against fixing them first. A blocked operation "+
				"comes with alternatives. Every decision is recorded.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("The operation about to happen"),
			mcp.Enum(string(specs.OpSkipGaps), string(specs.OpAdvancePhase), string(specs.OpGenerateCode)),
		),
		mcp.WithBoolean("override",
			mcp.Description("The user explicitly accepts the risk. Default: false"),
		),
	)
}

// Handle processes the evaluate_gate tool call.
func (t *EvaluateGateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	op := specs.OperationType(req.GetString("operation", ""))
	d, err := t.engine.EvaluateGate(ctx, id, op, req.GetBool("override", false))
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText(renderDecision(d)), nil
}

func renderDecision(d *specs.GateDecision) string {
	var b strings.Builder
	verdict := "PROCEED"
	if d.Blocking {
		verdict = "BLOCKED"
	}
	fmt.Fprintf(&b, "# Gate %s: %s\n\n", verdict, d.OperationType)
	fmt.Fprintf(&b, "**Decision ID:** `%s`\n", d.ID)
	fmt.Fprintf(&b, "**Severity:** %s\n", d.Severity)
	fmt.Fprintf(&b, "**Critical gaps:** %d\n", d.CriticalGapCount)
	fmt.Fprintf(&b, "**Expected cost if proceeding:** %.2f\n", d.PathProceed.ExpectedCost)
	fmt.Fprintf(&b, "**Expected cost if remediating:** %.2f\n", d.PathRemediate.ExpectedCost)
	if d.Overridden {
		b.WriteString("**Overridden:** yes, the user accepted the risk\n")
	}

	if len(d.Gaps) > 0 {
		b.WriteString("\n## Gaps\n\n")
		for _, g := range d.Gaps {
			fmt.Fprintf(&b, "- %s [%s] completeness %s, %d outstanding, remediation %.2f\n",
				g.Category, g.Priority, score(g.Completeness), g.OutstandingItems, g.RemediationCost)
		}
	}
	if d.Blocking && len(d.Alternatives) > 0 {
		b.WriteString("\n## Ways Forward\n\n")
		for _, a := range d.Alternatives {
			fmt.Fprintf(&b, "- **%s** (`%s`): %s\n", a.Label, a.ID, a.Description)
		}
	}
	return b.String()
}

// OverrideGateTool handles the override_gate_decision MCP tool.
type OverrideGateTool struct {
	engine *engine.Engine
}

// NewOverrideGateTool creates an OverrideGateTool.
func NewOverrideGateTool(e *engine.Engine) *OverrideGateTool {
	return &OverrideGateTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *OverrideGateTool) Definition() mcp.Tool {
	return mcp.NewTool("override_gate_decision",
		mcp.WithDescription(
			"Record that the user explicitly overrode a recorded gate decision. "+
				"Only call this after the user has seen the gaps and chosen to proceed anyway.",
		),
		mcp.WithString("decision_id", mcp.Required(), mcp.Description("ID of the gate decision")),
	)
}

// Handle processes the override_gate_decision tool call.
func (t *OverrideGateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "decision_id")
	if bad != nil {
		return bad, nil
	}
	d, err := t.engine.OverrideGateDecision(ctx, id)
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText(renderDecision(d)), nil
}

// ListGateDecisionsTool handles the list_gate_decisions MCP tool.
type ListGateDecisionsTool struct {
	engine *engine.Engine
}

// NewListGateDecisionsTool creates a ListGateDecisionsTool.
func NewListGateDecisionsTool(e *engine.Engine) *ListGateDecisionsTool {
	return &ListGateDecisionsTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *ListGateDecisionsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_gate_decisions",
		mcp.WithDescription("Show the gate audit log of a project, oldest first."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
	)
}

// Handle processes the list_gate_decisions tool call.
func (t *ListGateDecisionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	all, err := t.engine.ListGateDecisions(ctx, id)
	if err != nil {
		return failure(err)
	}
	if len(all) == 0 {
		return mcp.NewToolResultText("No gate decisions recorded."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Gate Decisions: %s\n\n", id)
	b.WriteString("| When | Operation | Blocking | Severity | Critical | Overridden | ID |\n")
	b.WriteString("|------|-----------|----------|----------|----------|------------|----|\n")
	for _, d := range all {
		fmt.Fprintf(&b, "| %s | %s | %t | %s | %d | %t | `%s` |\n",
			d.DecidedAt, d.OperationType, d.Blocking, d.Severity, d.CriticalGapCount, d.Overridden, d.ID)
	}
	return mcp.NewToolResultText(b.String()), nil
}
