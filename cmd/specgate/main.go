// specgate: a specification quality gate, served over MCP.
//
// Usage:
//
//	specgate serve                # Start the MCP server (stdio transport)
//	specgate status <project>     # Phase, maturity and blockers
//	specgate gaps <project>       # Gaps, most urgent first
//	specgate decisions <project>  # Gate audit log
//	specgate history <project>    # Transitions and maturity snapshots
package main

import (
	"os"

	"github.com/HendryAvila/specgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
