// Package server wires the engine into an MCP server instance.
//
// This is the composition root of the MCP surface: it builds the tools,
// prompts and resources around one engine. No business logic lives here.
package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/specgate/internal/engine"
	"github.com/HendryAvila/specgate/internal/prompts"
	"github.com/HendryAvila/specgate/internal/resources"
	"github.com/HendryAvila/specgate/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Tool is one MCP tool handler.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// New creates the MCP server with every tool, prompt and resource
// registered against e.
func New(e *engine.Engine) *server.MCPServer {
	s := server.NewMCPServer(
		"specgate",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	for _, t := range Tools(e) {
		s.AddTool(t.Definition(), t.Handle)
	}

	elicit := prompts.NewElicitPrompt()
	s.AddPrompt(elicit.Definition(), elicit.Handle)

	status := prompts.NewStatusPrompt()
	s.AddPrompt(status.Definition(), status.Handle)

	rh := resources.NewHandler(e)
	s.AddResource(rh.ProjectsResource(), rh.HandleProjects)
	s.AddResourceTemplate(rh.StatusTemplate(), rh.HandleStatus)

	return s
}

// Tools returns every tool handler bound to e, in registration order.
func Tools(e *engine.Engine) []Tool {
	return []Tool{
		// --- Projects ---
		tools.NewCreateProjectTool(e),
		tools.NewStatusTool(e),
		tools.NewListSpecificationsTool(e),

		// --- Specifications and conflicts ---
		tools.NewProposeTool(e),
		tools.NewIngestTool(e),
		tools.NewResolveConflictTool(e),
		tools.NewListConflictsTool(e),

		// --- Maturity, gaps and the gate ---
		tools.NewMaturityTool(e),
		tools.NewGapReportTool(e),
		tools.NewEvaluateGateTool(e),
		tools.NewOverrideGateTool(e),
		tools.NewListGateDecisionsTool(e),

		// --- Lifecycle ---
		tools.NewTransitionTool(e),
		tools.NewReportIssueTool(e),
		tools.NewResolveIssueTool(e),
	}
}

// serverInstructions tells the AI how to use the engine.
func serverInstructions() string {
	return `You have access to specgate, a specification quality gate.

## WHAT IT DOES

specgate keeps a project's specifications as atomic facts (category, key,
value), scores how complete each category is for the current phase, and
refuses risky moves (generating code, advancing a phase, skipping gaps)
while the specification is too thin or self-contradictory.

## WHEN TO USE IT

- The user describes a product, feature or requirement: record it with
  propose_specification or ingest_answer.
- Before generating code or moving to the next phase: call evaluate_gate
  or attempt_phase_transition and respect the answer.
- When you need to decide what to ask next: call get_gap_report.

## RULES

1. Never invent facts. Only record what the user said or confirmed.
2. When a proposal returns a conflict, STOP and show both versions to the
   user. Settle it with resolve_conflict (keep_old, replace, merge with the
   merged wording as clarification, or clarify). The category stays locked
   until then.
3. A blocked gate is an answer, not an error. Present the gaps and the ways
   forward. Only pass override=true, or call override_gate_decision, after
   the user explicitly accepts the risk.
4. Phase transitions are forward-only, one step at a time. override never
   bypasses pending conflicts or low maturity.
5. After a phase change, the next checklist adds items: call get_gap_report
   again before asking more questions.

## CATEGORIES

goals, requirements, tech_stack, security, testing, monitoring, deployment,
documentation, disaster_recovery, user_segments, performance, scalability,
plus prioritization (MVP vs later) which is never scored.

## PHASES

discovery → analysis → design → implementation

## RESOURCES AND PROMPTS

- specgate://projects lists every project.
- specgate://project/{id}/status returns the full status as JSON.
- specgate-elicit runs a round of gap-directed questions.
- specgate-status summarizes where a project stands.`
}
