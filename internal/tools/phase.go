package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/engine"
	"github.com/HendryAvila/specgate/internal/specs"
)

// TransitionTool handles the attempt_phase_transition MCP tool.
type TransitionTool struct {
	engine *engine.Engine
}

// NewTransitionTool creates a TransitionTool.
func NewTransitionTool(e *engine.Engine) *TransitionTool {
	return &TransitionTool{engine: e}
}

// Definition returns the MCP tool definition for registration.
func (t *TransitionTool) Definition() mcp.Tool {
	return mcp.NewTool("attempt_phase_transition",
		mcp.WithDescription(
			"Move the project forward one phase (discovery → analysis → design → implementation). "+
				"The move is refused while a conflict is pending or maturity is below the phase "+
				"guard, even with override. override only lifts a blocking gate verdict.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("to_phase",
			mcp.Description("Target phase. Default: the next phase"),
			mcp.Enum(phaseEnum()...),
		),
		mcp.WithBoolean("override",
			mcp.Description("The user accepts the gate's risk. Default: false"),
		),
	)
}

// Handle processes the attempt_phase_transition tool call.
func (t *TransitionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := required(req, "project_id")
	if bad != nil {
		return bad, nil
	}
	to := specs.Phase(req.GetString("to_phase", ""))
	res, err := t.engine.AttemptTransition(ctx, id, to, req.GetBool("override", false))
	if err != nil {
		return failure(err)
	}

	var b strings.Builder
	if !res.Allowed {
		fmt.Fprintf(&b, "# Transition Refused: %s → %s\n\n", res.From, res.To)
		b.WriteString("## Reasons\n\n")
		for _, r := range res.Reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		if len(res.BlockingGaps) > 0 {
			b.WriteString("\n## Blocking Gaps\n\n")
			for _, g := range res.BlockingGaps {
				fmt.Fprintf(&b, "- %s [%s] completeness %s, remediation cost %.2f\n",
					g.Category, g.Priority, score(g.Completeness), g.RemediationCost)
			}
		}
		b.WriteString("\nRun `get_gap_report` to choose the next questions.\n")
		return mcp.NewToolResultText(b.String()), nil
	}

	fmt.Fprintf(&b, "# Transitioned: %s → %s\n\n", res.From, res.To)
	fmt.Fprintf(&b, "**Overall maturity:** %s / 100\n", score(res.Maturity.OverallScore))
	if res.Transition != nil {
		fmt.Fprintf(&b, "**Transition ID:** `%s`\n", res.Transition.ID)
	}
	if res.FreshGapReport != nil {
		fmt.Fprintf(&b, "\nThe %s checklist adds new items. %d categories now have gaps:\n\n", res.To, len(res.FreshGapReport))
		for _, g := range res.FreshGapReport {
			fmt.Fprintf(&b, "- %s [%s] missing %s\n", g.Category, g.Priority, list(g.MissingItems))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
