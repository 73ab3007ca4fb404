package specs

import "fmt"

// --- Maturity ---

// MaturitySnapshot is the derived completeness score of one category.
type MaturitySnapshot struct {
	ProjectID  string   `json:"project_id"`
	Category   Category `json:"category"`
	Score      float64  `json:"score"` // 0-100
	ComputedAt string   `json:"computed_at"`
}

// FacetCoverage is the classifier's view of one checklist facet.
type FacetCoverage struct {
	Facet    string  `json:"facet"`
	Coverage float64 `json:"coverage"` // 0-1, as reported by the classifier
	Credit   float64 `json:"credit"`   // 0-1, after applying the facet threshold
	Covered  bool    `json:"covered"`
}

// CategoryMaturity pairs a snapshot with its facet-level detail.
type CategoryMaturity struct {
	MaturitySnapshot
	Weight         float64         `json:"weight"`
	Specifications int             `json:"specifications"`
	Facets         []FacetCoverage `json:"facets"`
}

// MaturityReport is the full scoring output for a project.
type MaturityReport struct {
	ProjectID    string             `json:"project_id"`
	Phase        Phase              `json:"phase"`
	Categories   []CategoryMaturity `json:"categories"`
	OverallScore float64            `json:"overall_score"`
	Readiness    float64            `json:"readiness"` // weighted mean of min(100, score/target)
	Target       float64            `json:"target"`
	ComputedAt   string             `json:"computed_at"`
}

// Snapshots flattens the report into one snapshot per category.
func (r *MaturityReport) Snapshots() []MaturitySnapshot {
	out := make([]MaturitySnapshot, 0, len(r.Categories))
	for _, c := range r.Categories {
		out = append(out, c.MaturitySnapshot)
	}
	return out
}

// Category returns the maturity entry for c, if present.
func (r *MaturityReport) Category(c Category) (CategoryMaturity, bool) {
	for _, cm := range r.Categories {
		if cm.Category == c {
			return cm, true
		}
	}
	return CategoryMaturity{}, false
}

// --- Gaps ---

// Priority ranks how urgently a gap category needs remediation.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities: critical first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// GapReport lists what is missing or vague in one category.
type GapReport struct {
	ProjectID    string   `json:"project_id"`
	Category     Category `json:"category"`
	Completeness float64  `json:"completeness"`
	Target       float64  `json:"target"`
	MissingItems []string `json:"missing_items"`
	VagueItems   []string `json:"vague_items"` // specification ids
	Priority     Priority `json:"priority"`
}

// OutstandingItems is the number of gap items left to remediate.
func (g GapReport) OutstandingItems() int {
	return len(g.MissingItems) + len(g.VagueItems)
}

// --- Quality gate ---

// OperationType is a major lifecycle operation guarded by the quality gate.
type OperationType string

const (
	OpSkipGaps     OperationType = "skip_gaps"
	OpAdvancePhase OperationType = "advance_phase"
	OpGenerateCode OperationType = "generate_code"
)

var validOperations = map[OperationType]bool{
	OpSkipGaps:     true,
	OpAdvancePhase: true,
	OpGenerateCode: true,
}

// ValidateOperation returns an error if op is not a known operation type.
func ValidateOperation(op OperationType) error {
	if !validOperations[op] {
		return &ValidationError{
			Field:  "operation_type",
			Reason: fmt.Sprintf("unknown operation %q: must be one of skip_gaps, advance_phase, generate_code", op),
		}
	}
	return nil
}

// Severity grades a gate decision.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
	SeverityNone     Severity = "NONE"
)

// PathCost is the expected-cost breakdown of one decision path.
type PathCost struct {
	ImmediateCost     float64 `json:"immediate_cost"`
	ReworkProbability float64 `json:"rework_probability"`
	ReworkCost        float64 `json:"rework_cost"`
	ExpectedCost      float64 `json:"expected_cost"`
}

// NewPathCost computes the expected cost from its parts.
func NewPathCost(immediate, probability, rework float64) PathCost {
	return PathCost{
		ImmediateCost:     immediate,
		ReworkProbability: probability,
		ReworkCost:        rework,
		ExpectedCost:      immediate + probability*rework,
	}
}

// GapCost is one gap category as seen by the gate, with its share of the
// remediation cost.
type GapCost struct {
	Category         Category `json:"category"`
	Priority         Priority `json:"priority"`
	Completeness     float64  `json:"completeness"`
	OutstandingItems int      `json:"outstanding_items"`
	RemediationCost  float64  `json:"remediation_cost"`
}

// Alternative is one way forward offered when an operation is blocked.
type Alternative struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// GateDecision is the audit record of one quality gate evaluation.
type GateDecision struct {
	ID               string        `json:"id"`
	ProjectID        string        `json:"project_id"`
	OperationType    OperationType `json:"operation_type"`
	PathProceed      PathCost      `json:"path_proceed"`
	PathRemediate    PathCost      `json:"path_remediate"`
	Blocking         bool          `json:"blocking"`
	WouldBlock       bool          `json:"would_block"`
	Severity         Severity      `json:"severity"`
	CriticalGapCount int           `json:"critical_gap_count"`
	RiskMargin       float64       `json:"risk_margin"`
	Gaps             []GapCost     `json:"gaps"`
	Alternatives     []Alternative `json:"alternatives"`
	Overridden       bool          `json:"overridden"`
	DecidedAt        string        `json:"decided_at"`
}

// GapFor returns the gate's view of category c, if it is a gap.
func (d *GateDecision) GapFor(c Category) (GapCost, bool) {
	for _, g := range d.Gaps {
		if g.Category == c {
			return g, true
		}
	}
	return GapCost{}, false
}
