// Package specs holds the domain model of the quality-gate engine:
// specifications, conflicts, maturity snapshots, gap reports, gate
// decisions, and the project aggregate that owns them.
//
// The package has no dependencies on storage or transport. Every other
// package speaks in these types.
package specs

import (
	"fmt"
	"strings"
)

// --- Category taxonomy ---

// Category is one bucket of the fixed specification taxonomy.
type Category string

const (
	CategoryGoals            Category = "goals"
	CategoryRequirements     Category = "requirements"
	CategoryTechStack        Category = "tech_stack"
	CategorySecurity         Category = "security"
	CategoryTesting          Category = "testing"
	CategoryMonitoring       Category = "monitoring"
	CategoryDeployment       Category = "deployment"
	CategoryDocumentation    Category = "documentation"
	CategoryDisasterRecovery Category = "disaster_recovery"
	CategoryUserSegments     Category = "user_segments"
	CategoryPerformance      Category = "performance"
	CategoryScalability      Category = "scalability"

	// CategoryPrioritization is reserved for the MVP/future-feature split
	// written by an external producer. It is never scored.
	CategoryPrioritization Category = "prioritization"
)

// Taxonomy is the ordered list of scored categories. Reports follow this order.
var Taxonomy = []Category{
	CategoryGoals,
	CategoryRequirements,
	CategoryTechStack,
	CategorySecurity,
	CategoryTesting,
	CategoryMonitoring,
	CategoryDeployment,
	CategoryDocumentation,
	CategoryDisasterRecovery,
	CategoryUserSegments,
	CategoryPerformance,
	CategoryScalability,
}

// validCategories includes the reserved prioritization bucket.
var validCategories = func() map[Category]bool {
	m := make(map[Category]bool, len(Taxonomy)+1)
	for _, c := range Taxonomy {
		m[c] = true
	}
	m[CategoryPrioritization] = true
	return m
}()

// ValidateCategory returns an error if the category is not in the taxonomy.
func ValidateCategory(c Category) error {
	if !validCategories[c] {
		return &ValidationError{
			Field:  "category",
			Reason: fmt.Sprintf("unknown category %q", c),
		}
	}
	return nil
}

// IsScored reports whether the category takes part in maturity scoring.
func (c Category) IsScored() bool {
	return validCategories[c] && c != CategoryPrioritization
}

// TaxonomyIndex returns the position of c in Taxonomy, or len(Taxonomy)
// for categories outside it.
func TaxonomyIndex(c Category) int {
	for i, t := range Taxonomy {
		if t == c {
			return i
		}
	}
	return len(Taxonomy)
}

// --- Specification ---

// Source records where a specification came from.
type Source string

const (
	SourceQuestion Source = "question"
	SourceChat     Source = "chat"
	SourceImport   Source = "import"
)

var validSources = map[Source]bool{
	SourceQuestion: true,
	SourceChat:     true,
	SourceImport:   true,
}

// Specification is one atomic, immutable fact about a project.
// Updating a fact means committing a new current Specification that
// supersedes the old one.
type Specification struct {
	ID           string   `json:"id"`
	ProjectID    string   `json:"project_id"`
	Category     Category `json:"category"`
	Key          string   `json:"key"`
	Value        string   `json:"value"`
	Confidence   float64  `json:"confidence"`
	Source       Source   `json:"source"`
	IsCurrent    bool     `json:"is_current"`
	Supersedes   string   `json:"supersedes,omitempty"`
	SupersededBy string   `json:"superseded_by,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// Proposal is a candidate specification that has not been committed yet.
type Proposal struct {
	ProjectID  string   `json:"project_id"`
	Category   Category `json:"category"`
	Key        string   `json:"key"`
	Value      string   `json:"value"`
	Confidence float64  `json:"confidence"`
	Source     Source   `json:"source"`
}

// Normalize trims whitespace and lowercases the key so that
// "Primary Goal" and "primary_goal" address the same fact.
func (p Proposal) Normalize() Proposal {
	p.ProjectID = strings.TrimSpace(p.ProjectID)
	p.Category = Category(strings.ToLower(strings.TrimSpace(string(p.Category))))
	p.Key = NormalizeKey(p.Key)
	p.Value = strings.TrimSpace(p.Value)
	if p.Source == "" {
		p.Source = SourceChat
	}
	return p
}

// Validate rejects malformed proposals before they reach the store.
func (p Proposal) Validate() error {
	if p.ProjectID == "" {
		return &ValidationError{Field: "project_id", Reason: "is required"}
	}
	if err := ValidateCategory(p.Category); err != nil {
		return err
	}
	if p.Key == "" {
		return &ValidationError{Field: "key", Reason: "is required"}
	}
	if p.Value == "" {
		return &ValidationError{Field: "value", Reason: "is required"}
	}
	if !(p.Confidence >= 0 && p.Confidence <= 1) {
		return &ValidationError{
			Field:  "confidence",
			Reason: fmt.Sprintf("%.2f is outside [0,1]", p.Confidence),
		}
	}
	if !validSources[p.Source] {
		return &ValidationError{
			Field:  "source",
			Reason: fmt.Sprintf("unknown source %q: must be one of question, chat, import", p.Source),
		}
	}
	return nil
}

// NormalizeKey converts a free-form label into snake_case.
// Example: "Auth Method" → "auth_method".
func NormalizeKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	var b strings.Builder
	prevSep := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevSep = false
		case r == ' ' || r == '_' || r == '-' || r == '.' || r == '/':
			if !prevSep {
				b.WriteByte('_')
				prevSep = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// --- Conflict ---

// ConflictType classifies a contradiction.
type ConflictType string

const (
	ConflictScope        ConflictType = "SCOPE"
	ConflictRequirements ConflictType = "REQUIREMENTS"
	ConflictTechnology   ConflictType = "TECHNOLOGY"
	ConflictArchitecture ConflictType = "ARCHITECTURE"
	ConflictOther        ConflictType = "OTHER"
)

// ParseConflictType maps free text onto a ConflictType, defaulting to OTHER.
func ParseConflictType(s string) ConflictType {
	switch ConflictType(strings.ToUpper(strings.TrimSpace(s))) {
	case ConflictScope:
		return ConflictScope
	case ConflictRequirements:
		return ConflictRequirements
	case ConflictTechnology:
		return ConflictTechnology
	case ConflictArchitecture:
		return ConflictArchitecture
	default:
		return ConflictOther
	}
}

// ConflictStatus tracks whether a conflict still locks its category.
type ConflictStatus string

const (
	StatusPending  ConflictStatus = "pending"
	StatusResolved ConflictStatus = "resolved"
)

// Resolution is how the user settled a conflict.
type Resolution string

const (
	ResolutionKeepOld Resolution = "keep_old"
	ResolutionReplace Resolution = "replace"
	ResolutionMerge   Resolution = "merge"
	ResolutionClarify Resolution = "clarify"
)

var validResolutions = map[Resolution]bool{
	ResolutionKeepOld: true,
	ResolutionReplace: true,
	ResolutionMerge:   true,
	ResolutionClarify: true,
}

// ValidateResolution returns an error if r is not a known resolution.
func ValidateResolution(r Resolution) error {
	if !validResolutions[r] {
		return &ValidationError{
			Field:  "resolution",
			Reason: fmt.Sprintf("unknown resolution %q: must be one of keep_old, replace, merge, clarify", r),
		}
	}
	return nil
}

// IsTerminal reports whether the resolution releases the category lock.
func (r Resolution) IsTerminal() bool {
	return r == ResolutionKeepOld || r == ResolutionReplace || r == ResolutionMerge
}

// Conflict is a detected contradiction between a current specification
// and a proposal. While pending it locks its (project, category).
type Conflict struct {
	ID                 string         `json:"id"`
	ProjectID          string         `json:"project_id"`
	Category           Category       `json:"category"`
	OldSpecificationID string         `json:"old_specification_id"`
	ProposedKey        string         `json:"proposed_key"`
	ProposedValue      string         `json:"proposed_value"`
	ProposedConfidence float64        `json:"proposed_confidence"`
	ProposedSource     Source         `json:"proposed_source"`
	ConflictType       ConflictType   `json:"conflict_type"`
	Explanation        string         `json:"explanation"`
	JudgmentConfidence float64        `json:"judgment_confidence"`
	Status             ConflictStatus `json:"status"`
	Resolution         Resolution     `json:"resolution,omitempty"`
	ResolvedValue      string         `json:"resolved_value,omitempty"`
	ResolvedSpecID     string         `json:"resolved_specification_id,omitempty"`
	ClarifyCount       int            `json:"clarify_count"`
	DetectedAt         string         `json:"detected_at"`
	ResolvedAt         string         `json:"resolved_at,omitempty"`
}

// ProposalOf rebuilds the proposal a conflict is holding back.
func (c *Conflict) ProposalOf() Proposal {
	return Proposal{
		ProjectID:  c.ProjectID,
		Category:   c.Category,
		Key:        c.ProposedKey,
		Value:      c.ProposedValue,
		Confidence: c.ProposedConfidence,
		Source:     c.ProposedSource,
	}
}

// --- Phases ---

// Phase is a project lifecycle stage.
type Phase string

const (
	PhaseDiscovery      Phase = "discovery"
	PhaseAnalysis       Phase = "analysis"
	PhaseDesign         Phase = "design"
	PhaseImplementation Phase = "implementation"
)

// PhaseOrder is the forward-only lifecycle sequence.
var PhaseOrder = []Phase{
	PhaseDiscovery,
	PhaseAnalysis,
	PhaseDesign,
	PhaseImplementation,
}

// PhaseIndex returns the ordinal position of a phase, or -1 if unknown.
func PhaseIndex(p Phase) int {
	for i, ph := range PhaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// NextPhase returns the phase after p, or "" when p is the last phase
// or unknown.
func NextPhase(p Phase) Phase {
	idx := PhaseIndex(p)
	if idx < 0 || idx >= len(PhaseOrder)-1 {
		return ""
	}
	return PhaseOrder[idx+1]
}

// Project is the per-project aggregate root.
type Project struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CurrentPhase Phase  `json:"current_phase"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// ArchitectureIssue is an unresolved finding reported by the external
// architecture-validation collaborator.
type ArchitectureIssue struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	Summary    string `json:"summary"`
	Status     string `json:"status"` // open | resolved
	ReportedAt string `json:"reported_at"`
	ResolvedAt string `json:"resolved_at,omitempty"`
}

// PhaseTransition is the audit record of a successful phase change.
type PhaseTransition struct {
	ID             string  `json:"id"`
	ProjectID      string  `json:"project_id"`
	FromPhase      Phase   `json:"from_phase"`
	ToPhase        Phase   `json:"to_phase"`
	OverallScore   float64 `json:"overall_score"`
	Readiness      float64 `json:"readiness"`
	GateDecisionID string  `json:"gate_decision_id,omitempty"`
	TransitionedAt string  `json:"transitioned_at"`
}
