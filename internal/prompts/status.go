package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the specgate-status MCP prompt.
// It instructs the AI to read and present the current project state.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("specgate-status",
		mcp.WithPromptDescription(
			"Check where a project stands: phase, maturity, blockers, "+
				"and what to do next.",
		),
		mcp.WithArgument("project_id",
			mcp.ArgumentDescription("Project to inspect"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the specgate-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	projectID := "my-project"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["project_id"]; ok && v != "" {
			projectID = v
		}
	}

	return &mcp.GetPromptResult{
		Description: "Project Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please run `get_status` with project_id='%s'.\n\n"+
						"Then:\n"+
						"1. Show me the current phase and overall maturity in a clear, visual format\n"+
						"2. Highlight blockers: pending conflicts, open architecture issues, critical gaps\n"+
						"3. Tell me whether `attempt_phase_transition` would likely succeed, and if not, why\n"+
						"4. Tell me exactly what I should do next",
					projectID,
				)),
			},
		},
	}, nil
}
