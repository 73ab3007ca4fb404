// Package tools implements the MCP tool handlers of the quality-gate engine.
//
// Each tool holds the engine it drives and exposes a Definition and a
// Handle, the pair mcp-go registers. Failures the user can act on
// (validation, locked categories, stale writes, unknown ids, collaborator
// outages) become tool-level errors the host shows to the user. Storage
// failures are returned as Go errors.
package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/engine"
	"github.com/HendryAvila/specgate/internal/specs"
)

// failure converts an engine error into the handler's return pair.
func failure(err error) (*mcp.CallToolResult, error) {
	if engine.IsDomainError(err) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

// required reads a non-empty string argument.
func required(req mcp.CallToolRequest, name string) (string, *mcp.CallToolResult) {
	v := strings.TrimSpace(req.GetString(name, ""))
	if v == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("'%s' is required", name))
	}
	return v, nil
}

func categoryEnum() []string {
	out := make([]string, 0, len(specs.Taxonomy)+1)
	for _, c := range specs.Taxonomy {
		out = append(out, string(c))
	}
	return append(out, string(specs.CategoryPrioritization))
}

func phaseEnum() []string {
	out := make([]string, 0, len(specs.PhaseOrder))
	for _, p := range specs.PhaseOrder {
		out = append(out, string(p))
	}
	return out
}

func score(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// cell keeps a value on one markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
