// Package phase governs the forward-only project lifecycle
// (discovery → analysis → design → implementation).
//
// An attempt sends the target phase to the lifecycle state machine. When
// the machine has a transition for it, the entry guard scores the project,
// evaluates the quality gate for advance_phase and checks the phase's
// requirements. A gate override never bypasses a guard.
package phase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HendryAvila/specgate/internal/collab"
	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/gaps"
	"github.com/HendryAvila/specgate/internal/gate"
	"github.com/HendryAvila/specgate/internal/maturity"
	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/store"
)

// Observer is notified after a transition that changed the active
// checklist, with the gap report computed against the new phase.
type Observer func(ctx context.Context, t specs.PhaseTransition, fresh []specs.GapReport)

// TransitionResult is the outcome of one transition attempt.
type TransitionResult struct {
	Allowed        bool                   `json:"allowed"`
	From           specs.Phase            `json:"from"`
	To             specs.Phase            `json:"to"`
	Reasons        []string               `json:"reasons"`
	BlockingGaps   []specs.GapCost        `json:"blocking_gaps"`
	Decision       *specs.GateDecision    `json:"gate_decision"`
	Maturity       *specs.MaturityReport  `json:"maturity"`
	Transition     *specs.PhaseTransition `json:"transition,omitempty"`
	FreshGapReport []specs.GapReport      `json:"fresh_gap_report,omitempty"`
}

// Options configures a Controller.
type Options struct {
	Store        *store.Store
	Scorer       *maturity.Scorer
	Analyzer     *gaps.Analyzer
	Gate         *gate.Evaluator
	Architecture collab.ArchitectureValidator
	Config       *config.Config
	Logger       *slog.Logger
	Observer     Observer
}

// Controller runs phase transitions.
type Controller struct {
	store    *store.Store
	scorer   *maturity.Scorer
	analyzer *gaps.Analyzer
	gate     *gate.Evaluator
	arch     collab.ArchitectureValidator
	cfg      *config.Config
	logger   *slog.Logger
	observer Observer
}

// New creates a Controller. A nil Architecture validator reads open issues
// from the store.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Architecture == nil {
		opts.Architecture = opts.Store
	}
	return &Controller{
		store:    opts.Store,
		scorer:   opts.Scorer,
		analyzer: opts.Analyzer,
		gate:     opts.Gate,
		arch:     opts.Architecture,
		cfg:      opts.Config,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
}

// Attempt tries to move the project to `to`, which must be the phase right
// after the current one. A refused attempt is a normal result with reasons,
// not an error; the gate decision it produced is persisted either way.
// The commit revalidates what the guards saw and fails with a stale write
// if the project changed in between.
func (c *Controller) Attempt(ctx context.Context, projectID string, to specs.Phase, override bool) (*TransitionResult, error) {
	view, err := c.store.ReadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	from := view.Project.CurrentPhase

	var (
		res     *TransitionResult
		evalErr error
	)
	settled, reachable, err := step(from, to, func(next specs.Phase) bool {
		res, evalErr = c.evaluate(ctx, view, next, override)
		return evalErr == nil && len(res.Reasons) == 0
	})
	if err != nil {
		return nil, err
	}
	if !reachable {
		return nil, fmt.Errorf("project %s cannot move from %s to %q: %w",
			projectID, from, to, specs.ErrInvalidTransition)
	}
	if evalErr != nil {
		return nil, evalErr
	}
	if settled != to {
		res.BlockingGaps = res.Decision.Gaps
		c.logger.Info("phase transition refused",
			"project_id", projectID, "from", from, "to", to, "reasons", len(res.Reasons))
		return res, nil
	}

	report := res.Maturity
	t := &specs.PhaseTransition{
		ProjectID:      projectID,
		FromPhase:      from,
		ToPhase:        to,
		OverallScore:   report.OverallScore,
		Readiness:      report.Readiness,
		GateDecisionID: res.Decision.ID,
	}
	check := store.TransitionCheck{
		Revisions:    view.Revisions,
		NoOpenIssues: c.cfg.Guard(to).RequireNoArchitectureIssues,
	}
	if err := c.store.Transition(ctx, t, report.Snapshots(), check); err != nil {
		return nil, err
	}
	res.Allowed = true
	res.Transition = t
	res.BlockingGaps = []specs.GapCost{}
	c.logger.Info("phase transition completed",
		"project_id", projectID, "from", from, "to", to, "overall_score", report.OverallScore)

	if c.cfg.ChecklistChanged(from, to) {
		res.FreshGapReport = c.freshGaps(ctx, projectID, to, view.Current)
		if c.observer != nil && res.FreshGapReport != nil {
			c.observer(ctx, *t, res.FreshGapReport)
		}
	}
	return res, nil
}

// evaluate scores the project, records the advance_phase gate decision,
// and checks the entry guard of `to`.
func (c *Controller) evaluate(ctx context.Context, view *store.ProjectView, to specs.Phase, override bool) (*TransitionResult, error) {
	projectID := view.Project.ID
	from := view.Project.CurrentPhase
	guard := c.cfg.Guard(to)
	target := c.cfg.GateTarget(specs.OpAdvancePhase, from)

	report, err := c.scorer.Score(ctx, maturity.Input{
		ProjectID: projectID,
		Phase:     from,
		Current:   view.Current,
		Target:    target,
	})
	if err != nil {
		return nil, err
	}
	gapReports := c.analyzer.Analyze(report, view.Current, target)

	decision, err := c.gate.Evaluate(gate.Request{
		ProjectID: projectID,
		Operation: specs.OpAdvancePhase,
		Gaps:      gapReports,
		Override:  override,
	})
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveGateDecision(ctx, decision); err != nil {
		return nil, err
	}

	in := GuardInput{
		Report:              report,
		PendingConflicts:    len(view.Pending),
		PrioritizationSpecs: countIn(view.Current, specs.CategoryPrioritization),
		GateBlocked:         decision.Blocking,
	}
	if guard.RequireNoArchitectureIssues {
		issues, err := c.arch.OpenIssues(ctx, projectID)
		if err != nil {
			return nil, &specs.ExternalCollaboratorError{Capability: collab.CapArchitectureIssues, Err: err}
		}
		in.ArchitectureIssueCount = len(issues)
	}

	return &TransitionResult{
		From:     from,
		To:       to,
		Reasons:  Check(guard, in),
		Decision: decision,
		Maturity: report,
	}, nil
}

// freshGaps rescores against the new phase's checklist. The transition has
// already committed, so failures are logged rather than returned.
func (c *Controller) freshGaps(ctx context.Context, projectID string, phase specs.Phase, current []specs.Specification) []specs.GapReport {
	target := c.cfg.GateTarget(specs.OpAdvancePhase, phase)
	report, err := c.scorer.Score(ctx, maturity.Input{
		ProjectID: projectID,
		Phase:     phase,
		Current:   current,
		Target:    target,
	})
	if err != nil {
		c.logger.Warn("rescoring after transition failed", "project_id", projectID, "phase", phase, "error", err)
		return nil
	}
	out := c.analyzer.Analyze(report, current, target)
	if out == nil {
		out = []specs.GapReport{}
	}
	return out
}

// ─── Guards ──────────────────────────────────────────────────────────────────

// GuardInput is everything an entry guard looks at.
type GuardInput struct {
	Report                 *specs.MaturityReport
	PendingConflicts       int
	PrioritizationSpecs    int
	ArchitectureIssueCount int
	GateBlocked            bool
}

// Check returns the reasons the guard refuses entry. An empty result means
// the guard passes. Pending conflicts and a blocking gate refuse every
// transition.
func Check(g config.Guard, in GuardInput) []string {
	reasons := []string{}
	if in.PendingConflicts > 0 {
		reasons = append(reasons, fmt.Sprintf("%d pending conflict(s) must be resolved first", in.PendingConflicts))
	}
	if in.Report != nil && in.Report.OverallScore < g.MinOverall {
		reasons = append(reasons, fmt.Sprintf("overall maturity %.2f is below %.0f", in.Report.OverallScore, g.MinOverall))
	}
	if g.RequireAllAtTarget && in.Report != nil {
		for _, cm := range in.Report.Categories {
			if cm.Category.IsScored() && cm.Score < g.CategoryTarget {
				reasons = append(reasons, fmt.Sprintf("%s maturity %.2f is below %.0f", cm.Category, cm.Score, g.CategoryTarget))
			}
		}
	}
	if g.RequirePrioritization && in.PrioritizationSpecs == 0 {
		reasons = append(reasons, "no prioritization specification has been recorded")
	}
	if g.RequireNoArchitectureIssues && in.ArchitectureIssueCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d open architecture issue(s)", in.ArchitectureIssueCount))
	}
	if in.GateBlocked {
		reasons = append(reasons, "quality gate blocks advance_phase")
	}
	return reasons
}

func countIn(list []specs.Specification, cat specs.Category) int {
	n := 0
	for _, sp := range list {
		if sp.Category == cat {
			n++
		}
	}
	return n
}
