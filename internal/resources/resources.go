// Package resources implements the read-only MCP resources of the
// quality-gate engine, addressed as specgate://... URIs.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specgate/internal/engine"
)

// Handler serves project resources from the engine.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a resource Handler.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// ProjectsResource returns the static resource listing every project.
func (h *Handler) ProjectsResource() mcp.Resource {
	return mcp.NewResource(
		"specgate://projects",
		"Projects",
		mcp.WithResourceDescription("Every project with its current phase"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleProjects returns the project list as JSON.
func (h *Handler) HandleProjects(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := h.engine.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return jsonResource(req.Params.URI, list)
}

// StatusTemplate returns the resource template for one project's status.
func (h *Handler) StatusTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		projectPrefix+"{id}"+statusSuffix,
		"Project Status",
		mcp.WithTemplateDescription("Phase, maturity, gaps, pending conflicts and open architecture issues of a project"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// HandleStatus returns one project's status as JSON. Unknown projects and
// malformed URIs yield a plain-text error resource.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := projectFromURI(req.Params.URI)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	st, err := h.engine.Status(ctx, id)
	if err != nil {
		if engine.IsDomainError(err) {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		return nil, fmt.Errorf("reading status: %w", err)
	}
	return jsonResource(req.Params.URI, st)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
