// Package gate decides whether a major lifecycle operation may proceed.
//
// Two paths are priced. Path-proceed performs the operation now and risks
// rework that grows with the number of critical gaps. Path-remediate pays
// for the outstanding critical/high gap items first and leaves only a small
// residual risk. The operation is blocked when a critical gap exists and
// proceeding costs at least risk_margin times remediating.
//
// The evaluator is stateless: callers hand it freshly computed gap reports.
package gate

import (
	"math"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/gaps"
	"github.com/HendryAvila/specgate/internal/specs"
)

// Alternative ids offered when an operation is blocked.
const (
	AltGuidedQA   = "guided_qa"
	AltFreeForm   = "free_form"
	AltReviewGaps = "review_gaps"
	AltOverride   = "override"
)

// Alternatives returns the ordered ways forward from a blocked operation.
func Alternatives() []specs.Alternative {
	return []specs.Alternative{
		{ID: AltGuidedQA, Label: "Resolve via guided Q&A", Description: "Answer targeted questions for each critical and high gap."},
		{ID: AltFreeForm, Label: "Resolve via free-form input", Description: "Describe the missing details in your own words."},
		{ID: AltReviewGaps, Label: "Review gap detail only", Description: "Inspect the gap report without changing anything."},
		{ID: AltOverride, Label: "Explicit override", Description: "Proceed anyway. The override is recorded for audit."},
	}
}

// Request is one gate evaluation.
type Request struct {
	ProjectID string
	Operation specs.OperationType
	Gaps      []specs.GapReport
	Override  bool
}

// Evaluator prices operations with the configured cost model.
type Evaluator struct {
	cfg *config.Config
}

// New creates an Evaluator.
func New(cfg *config.Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate produces a GateDecision. An unknown operation is a validation
// error; a blocking verdict is a normal result.
func (e *Evaluator) Evaluate(req Request) (*specs.GateDecision, error) {
	if err := specs.ValidateOperation(req.Operation); err != nil {
		return nil, err
	}
	cost := e.cfg.Cost

	critical := gaps.CountCritical(req.Gaps)
	lines := make([]specs.GapCost, 0, len(req.Gaps))
	outstanding := 0
	for _, g := range req.Gaps {
		lines = append(lines, specs.GapCost{
			Category:         g.Category,
			Priority:         g.Priority,
			Completeness:     g.Completeness,
			OutstandingItems: g.OutstandingItems(),
			RemediationCost:  float64(g.OutstandingItems()) * cost.RemediatePerItemCost,
		})
		if g.Priority == specs.PriorityCritical || g.Priority == specs.PriorityHigh {
			outstanding += g.OutstandingItems()
		}
	}

	proceed := ProceedPath(cost, e.cfg.ReworkCost(req.Operation), critical)
	remediate := RemediatePath(cost, outstanding)
	wouldBlock := Blocking(proceed, remediate, critical, cost.RiskMargin)

	d := &specs.GateDecision{
		ProjectID:        req.ProjectID,
		OperationType:    req.Operation,
		PathProceed:      proceed,
		PathRemediate:    remediate,
		Blocking:         wouldBlock && !req.Override,
		WouldBlock:       wouldBlock,
		Severity:         severity(wouldBlock, critical, len(req.Gaps)),
		CriticalGapCount: critical,
		RiskMargin:       cost.RiskMargin,
		Gaps:             lines,
		Alternatives:     []specs.Alternative{},
		Overridden:       req.Override,
		DecidedAt:        specs.Now(),
	}
	if wouldBlock {
		d.Alternatives = Alternatives()
	}
	return d, nil
}

// ProceedPath prices performing the operation now.
func ProceedPath(cost config.CostModel, rework float64, criticalGaps int) specs.PathCost {
	p := math.Min(cost.ProceedBaseProbability+cost.ProceedProbabilityStep*float64(criticalGaps), cost.ProceedProbabilityCap)
	return specs.NewPathCost(cost.ProceedImmediateCost, p, rework)
}

// RemediatePath prices fixing outstanding critical/high gap items first.
func RemediatePath(cost config.CostModel, outstandingItems int) specs.PathCost {
	return specs.NewPathCost(
		float64(outstandingItems)*cost.RemediatePerItemCost,
		cost.RemediateProbability,
		cost.RemediateTweakCost,
	)
}

// Blocking is the decision rule: at least one critical gap and proceeding
// costs at least margin times remediating.
func Blocking(proceed, remediate specs.PathCost, criticalGaps int, margin float64) bool {
	return criticalGaps >= 1 && proceed.ExpectedCost >= margin*remediate.ExpectedCost
}

func severity(wouldBlock bool, critical, gapCount int) specs.Severity {
	switch {
	case wouldBlock:
		return specs.SeverityCritical
	case critical > 0:
		return specs.SeverityWarning
	case gapCount > 0:
		return specs.SeverityInfo
	default:
		return specs.SeverityNone
	}
}
