// Package prompts implements the MCP prompts of the quality-gate engine.
//
// Prompts are user-triggered workflows (like slash commands) that tell the
// AI which tools to call in which order. Unlike tools, the user starts them.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ElicitPrompt handles the specgate-elicit MCP prompt.
// It drives one round of gap-directed questioning.
type ElicitPrompt struct{}

// NewElicitPrompt creates an ElicitPrompt.
func NewElicitPrompt() *ElicitPrompt {
	return &ElicitPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ElicitPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("specgate-elicit",
		mcp.WithPromptDescription(
			"Ask the next round of specification questions, chosen from the most urgent gaps, "+
				"and record the answers.",
		),
		mcp.WithArgument("project_id",
			mcp.ArgumentDescription("Project to work on"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("questions",
			mcp.ArgumentDescription("How many questions to ask this round. Default: 3"),
		),
	)
}

// Handle processes the specgate-elicit prompt request.
func (p *ElicitPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	projectID := "my-project"
	questions := "3"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["project_id"]; ok && v != "" {
			projectID = v
		}
		if v, ok := args["questions"]; ok && v != "" {
			questions = v
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Elicit specifications for %s", projectID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Help me specify project '%s'.\n\n"+
						"1. Run `create_project` with project_id='%s' (it is safe if it already exists)\n"+
						"2. Run `list_conflicts` with status='pending'. If any exist, settle them with me first "+
						"using `resolve_conflict`; their categories are locked until then\n"+
						"3. Run `get_gap_report` and pick the %s most urgent missing items, critical first\n"+
						"4. Ask me one plain-language question per item, one at a time\n"+
						"5. Record each answer with `ingest_answer`, or `propose_specification` for a single fact\n"+
						"6. If a conflict is reported, show me both versions and ask whether to keep the old one, "+
						"replace it, merge them, or clarify\n"+
						"7. Finish with `get_maturity` and tell me how close each category is to its target",
					projectID, projectID, questions,
				)),
			},
		},
	}, nil
}
