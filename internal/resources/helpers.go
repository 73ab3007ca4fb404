package resources

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	projectPrefix = "specgate://project/"
	statusSuffix  = "/status"
)

// projectFromURI extracts the project id from specgate://project/{id}/status.
func projectFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, projectPrefix) || !strings.HasSuffix(uri, statusSuffix) {
		return "", fmt.Errorf("unsupported resource uri %q", uri)
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, projectPrefix), statusSuffix)
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("resource uri %q has no project id", uri)
	}
	return id, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
