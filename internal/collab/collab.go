// Package collab defines the pluggable capabilities the engine delegates
// natural-language judgement to: extraction, contradiction checking, facet
// classification, and architecture validation.
//
// Heuristic is the rule-based implementation used by default. The llm
// package provides a model-backed one, and Resilient wraps either with
// retry and timeout policies.
package collab

import (
	"context"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/specs"
)

// Capability names, used in ExternalCollaboratorError.
const (
	CapExtract            = "extract"
	CapCheckContradiction = "check_contradiction"
	CapClassifyFacets     = "classify_facets"
	CapArchitectureIssues = "architecture_issues"
)

// ProjectContext is what an extractor knows about the project.
type ProjectContext struct {
	ProjectID string
	Phase     specs.Phase
	Current   []specs.Specification
}

// Extractor turns a raw user answer into proposed specifications.
type Extractor interface {
	Extract(ctx context.Context, rawAnswer string, pc ProjectContext) ([]specs.Proposal, error)
}

// ContradictionQuery carries one proposal and every current specification
// it must be compared against. A same-key specification comes first.
type ContradictionQuery struct {
	Proposal        specs.Proposal
	Existing        []specs.Specification
	CategoryContext string
}

// Verdict is the checker's judgement. ExistingID names the specification
// the proposal contradicts.
type Verdict struct {
	IsConflict   bool               `json:"is_conflict"`
	ConflictType specs.ConflictType `json:"conflict_type"`
	Explanation  string             `json:"explanation"`
	Confidence   float64            `json:"confidence"`
	ExistingID   string             `json:"existing_id"`
}

// ContradictionChecker judges whether a proposal contradicts existing facts.
type ContradictionChecker interface {
	Check(ctx context.Context, q ContradictionQuery) (Verdict, error)
}

// FacetClassifier reports, per facet name, how well the specifications
// cover it (0-1). Facets missing from the result count as uncovered.
type FacetClassifier interface {
	Classify(ctx context.Context, cat specs.Category, facets []config.Facet, current []specs.Specification) (map[string]float64, error)
}

// ArchitectureValidator lists unresolved architecture issues of a project.
type ArchitectureValidator interface {
	OpenIssues(ctx context.Context, projectID string) ([]specs.ArchitectureIssue, error)
}

// Capabilities bundles the three language capabilities. Heuristic, the llm
// implementation, and Resilient all satisfy it.
type Capabilities interface {
	Extractor
	ContradictionChecker
	FacetClassifier
}
