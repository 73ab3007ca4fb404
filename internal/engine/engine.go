// Package engine is the facade over the quality-gate components. Each
// exported method is one short synchronous unit of work over the store,
// plus at most one call per proposal to an external collaborator.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/HendryAvila/specgate/internal/collab"
	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/conflict"
	"github.com/HendryAvila/specgate/internal/gaps"
	"github.com/HendryAvila/specgate/internal/gate"
	"github.com/HendryAvila/specgate/internal/lock"
	"github.com/HendryAvila/specgate/internal/maturity"
	"github.com/HendryAvila/specgate/internal/phase"
	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/store"
)

// Options configures an Engine. Config, Store and Capabilities are required.
type Options struct {
	Config       *config.Config
	Store        *store.Store
	Capabilities collab.Capabilities
	Locker       lock.Locker
	Architecture collab.ArchitectureValidator
	Observer     phase.Observer
	Logger       *slog.Logger
}

// Engine exposes the quality-gate operations.
type Engine struct {
	cfg      *config.Config
	store    *store.Store
	caps     collab.Capabilities
	scorer   *maturity.Scorer
	analyzer *gaps.Analyzer
	gate     *gate.Evaluator
	detector *conflict.Detector
	phases   *phase.Controller
	logger   *slog.Logger
}

// New wires the components together.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e := &Engine{
		cfg:      opts.Config,
		store:    opts.Store,
		caps:     opts.Capabilities,
		scorer:   maturity.New(opts.Config, opts.Capabilities),
		analyzer: gaps.New(opts.Config),
		gate:     gate.New(opts.Config),
		logger:   opts.Logger,
	}
	e.detector = conflict.New(conflict.Options{
		Store:    opts.Store,
		Checker:  opts.Capabilities,
		Locker:   opts.Locker,
		Config:   opts.Config,
		Logger:   opts.Logger,
		OnCommit: e.recordSnapshot,
	})
	e.phases = phase.New(phase.Options{
		Store:        opts.Store,
		Scorer:       e.scorer,
		Analyzer:     e.analyzer,
		Gate:         e.gate,
		Architecture: opts.Architecture,
		Config:       opts.Config,
		Logger:       opts.Logger,
		Observer:     opts.Observer,
	})
	return e
}

// Config returns the active configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// ─── Projects ────────────────────────────────────────────────────────────────

// CreateProject creates a project in discovery, or returns the existing one.
func (e *Engine) CreateProject(ctx context.Context, id, name string) (*specs.Project, error) {
	return e.store.EnsureProject(ctx, id, name)
}

// ListProjects returns every project.
func (e *Engine) ListProjects(ctx context.Context) ([]specs.Project, error) {
	return e.store.ListProjects(ctx)
}

// ─── Specifications ──────────────────────────────────────────────────────────

// Propose commits a specification or raises a conflict. The project is
// created on first use.
func (e *Engine) Propose(ctx context.Context, p specs.Proposal) (*conflict.ProposeResult, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := e.store.EnsureProject(ctx, p.ProjectID, ""); err != nil {
		return nil, err
	}
	return e.detector.Propose(ctx, p)
}

// IngestItem is the outcome of one extracted proposal.
type IngestItem struct {
	Proposal specs.Proposal          `json:"proposal"`
	Result   *conflict.ProposeResult `json:"result,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// IngestResult reports every proposal extracted from one answer.
type IngestResult struct {
	ProjectID string       `json:"project_id"`
	Items     []IngestItem `json:"items"`
	Committed int          `json:"committed"`
	Conflicts int          `json:"conflicts"`
	Failed    int          `json:"failed"`
}

// IngestAnswer extracts proposals from a raw answer and proposes each one.
// Domain failures (locked category, stale write, validation, collaborator
// outage) are reported per item; storage failures abort.
func (e *Engine) IngestAnswer(ctx context.Context, projectID, raw string) (*IngestResult, error) {
	if raw == "" {
		return nil, &specs.ValidationError{Field: "answer", Reason: "is required"}
	}
	if _, err := e.store.EnsureProject(ctx, projectID, ""); err != nil {
		return nil, err
	}
	view, err := e.store.ReadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	proposals, err := e.caps.Extract(ctx, raw, collab.ProjectContext{
		ProjectID: projectID,
		Phase:     view.Project.CurrentPhase,
		Current:   view.Current,
	})
	if err != nil {
		return nil, &specs.ExternalCollaboratorError{Capability: collab.CapExtract, Err: err}
	}

	res := &IngestResult{ProjectID: projectID, Items: make([]IngestItem, 0, len(proposals))}
	for _, p := range proposals {
		p.ProjectID = projectID
		item := IngestItem{Proposal: p}
		out, err := e.detector.Propose(ctx, p)
		switch {
		case err == nil:
			item.Result = out
			if out.Outcome == conflict.OutcomeConflict {
				res.Conflicts++
			} else {
				res.Committed++
			}
		case IsDomainError(err):
			item.Error = err.Error()
			res.Failed++
		default:
			return nil, err
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

// ListSpecifications lists a project's specifications, optionally with
// superseded history. An empty category lists all of them.
func (e *Engine) ListSpecifications(ctx context.Context, projectID string, cat specs.Category, withHistory bool) ([]specs.Specification, error) {
	if cat != "" {
		if err := specs.ValidateCategory(cat); err != nil {
			return nil, err
		}
	}
	if _, err := e.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.store.ListSpecifications(ctx, projectID, cat, withHistory)
}

// ─── Conflicts ───────────────────────────────────────────────────────────────

// ResolveConflict applies a resolution to a pending conflict.
func (e *Engine) ResolveConflict(ctx context.Context, conflictID string, resolution specs.Resolution, clarification string) (*conflict.ResolutionResult, error) {
	return e.detector.Resolve(ctx, conflictID, resolution, clarification)
}

// ListConflicts lists a project's conflicts. An empty status lists all.
func (e *Engine) ListConflicts(ctx context.Context, projectID string, status specs.ConflictStatus) ([]specs.Conflict, error) {
	if _, err := e.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.store.ListConflicts(ctx, projectID, status)
}

// ─── Maturity and gaps ───────────────────────────────────────────────────────

// Maturity scores the project against its current phase's checklist.
// A target of 0 uses the configured default.
func (e *Engine) Maturity(ctx context.Context, projectID string, target float64) (*specs.MaturityReport, error) {
	view, err := e.store.ReadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return e.score(ctx, view, target)
}

// GapReport lists the categories below target, most urgent first.
func (e *Engine) GapReport(ctx context.Context, projectID string, target float64) ([]specs.GapReport, error) {
	view, err := e.store.ReadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	report, err := e.score(ctx, view, target)
	if err != nil {
		return nil, err
	}
	out := e.analyzer.Analyze(report, view.Current, report.Target)
	if out == nil {
		out = []specs.GapReport{}
	}
	return out, nil
}

func (e *Engine) score(ctx context.Context, view *store.ProjectView, target float64) (*specs.MaturityReport, error) {
	if target < 0 || target > 100 {
		return nil, &specs.ValidationError{Field: "target", Reason: "must be within (0,100]"}
	}
	return e.scorer.Score(ctx, maturity.Input{
		ProjectID: view.Project.ID,
		Phase:     view.Project.CurrentPhase,
		Current:   view.Current,
		Target:    target,
	})
}

// recordSnapshot persists the committed category's new score. It runs
// after the commit, so failures are only logged.
func (e *Engine) recordSnapshot(ctx context.Context, projectID string, cat specs.Category) {
	if !cat.IsScored() {
		return
	}
	view, err := e.store.ReadProject(ctx, projectID)
	if err != nil {
		e.logger.Warn("reading project for snapshot failed", "project_id", projectID, "category", cat, "error", err)
		return
	}
	cm, err := e.scorer.ScoreCategory(ctx, maturity.Input{
		ProjectID: projectID,
		Phase:     view.Project.CurrentPhase,
		Current:   view.Current,
	}, cat)
	if err != nil {
		e.logger.Warn("maturity recompute failed", "project_id", projectID, "category", cat, "error", err)
		return
	}
	if err := e.store.SaveSnapshots(ctx, store.ReasonCommit, []specs.MaturitySnapshot{cm.MaturitySnapshot}); err != nil {
		e.logger.Warn("saving maturity snapshot failed", "project_id", projectID, "category", cat, "error", err)
	}
}

// MaturityHistory returns the recorded snapshots of a category, or of every
// category when cat is empty.
func (e *Engine) MaturityHistory(ctx context.Context, projectID string, cat specs.Category) ([]store.SnapshotRecord, error) {
	if cat != "" {
		if err := specs.ValidateCategory(cat); err != nil {
			return nil, err
		}
	}
	if _, err := e.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.store.ListSnapshots(ctx, projectID, cat)
}

// ─── Quality gate ────────────────────────────────────────────────────────────

// EvaluateGate decides whether op may proceed. The decision is persisted.
// A blocking decision is a normal result, not an error.
func (e *Engine) EvaluateGate(ctx context.Context, projectID string, op specs.OperationType, override bool) (*specs.GateDecision, error) {
	if err := specs.ValidateOperation(op); err != nil {
		return nil, err
	}
	view, err := e.store.ReadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	target := e.cfg.GateTarget(op, view.Project.CurrentPhase)
	report, err := e.score(ctx, view, target)
	if err != nil {
		return nil, err
	}
	d, err := e.gate.Evaluate(gate.Request{
		ProjectID: projectID,
		Operation: op,
		Gaps:      e.analyzer.Analyze(report, view.Current, target),
		Override:  override,
	})
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveGateDecision(ctx, d); err != nil {
		return nil, err
	}
	e.logger.Info("gate evaluated",
		"project_id", projectID, "operation", op, "blocking", d.Blocking, "severity", d.Severity)
	return d, nil
}

// OverrideGateDecision records an explicit override on a stored decision.
func (e *Engine) OverrideGateDecision(ctx context.Context, decisionID string) (*specs.GateDecision, error) {
	d, err := e.store.MarkOverridden(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	e.logger.Info("gate decision overridden", "project_id", d.ProjectID, "decision_id", d.ID)
	return d, nil
}

// ListGateDecisions returns the gate audit log of a project.
func (e *Engine) ListGateDecisions(ctx context.Context, projectID string) ([]specs.GateDecision, error) {
	if _, err := e.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.store.ListGateDecisions(ctx, projectID)
}

// ─── Phases ──────────────────────────────────────────────────────────────────

// AttemptTransition moves the project forward one phase. An empty target
// means the next phase.
func (e *Engine) AttemptTransition(ctx context.Context, projectID string, to specs.Phase, override bool) (*phase.TransitionResult, error) {
	if to == "" {
		p, err := e.store.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		to = specs.NextPhase(p.CurrentPhase)
	}
	return e.phases.Attempt(ctx, projectID, to, override)
}

// ListTransitions returns a project's phase history.
func (e *Engine) ListTransitions(ctx context.Context, projectID string) ([]specs.PhaseTransition, error) {
	return e.store.ListTransitions(ctx, projectID)
}

// ─── Architecture issues ─────────────────────────────────────────────────────

// ReportArchitectureIssue records an open issue that blocks implementation.
func (e *Engine) ReportArchitectureIssue(ctx context.Context, projectID, summary string) (*specs.ArchitectureIssue, error) {
	if _, err := e.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.store.ReportIssue(ctx, projectID, summary)
}

// ResolveArchitectureIssue closes an issue.
func (e *Engine) ResolveArchitectureIssue(ctx context.Context, issueID string) (*specs.ArchitectureIssue, error) {
	return e.store.ResolveIssue(ctx, issueID)
}

// ─── Status ──────────────────────────────────────────────────────────────────

// Status is a one-call overview of a project.
type Status struct {
	Project          specs.Project             `json:"project"`
	Maturity         *specs.MaturityReport     `json:"maturity"`
	Gaps             []specs.GapReport         `json:"gaps"`
	PendingConflicts []specs.Conflict          `json:"pending_conflicts"`
	OpenIssues       []specs.ArchitectureIssue `json:"open_architecture_issues"`
	NextPhase        specs.Phase               `json:"next_phase,omitempty"`
}

// Status reads the project once and scores it.
func (e *Engine) Status(ctx context.Context, projectID string) (*Status, error) {
	view, err := e.store.ReadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	report, err := e.score(ctx, view, 0)
	if err != nil {
		return nil, err
	}
	g := e.analyzer.Analyze(report, view.Current, report.Target)
	if g == nil {
		g = []specs.GapReport{}
	}
	return &Status{
		Project:          view.Project,
		Maturity:         report,
		Gaps:             g,
		PendingConflicts: nonNil(view.Pending),
		OpenIssues:       nonNil(view.OpenIssues),
		NextPhase:        specs.NextPhase(view.Project.CurrentPhase),
	}, nil
}

// IsDomainError reports errors a caller can act on, as opposed to
// infrastructure failures.
func IsDomainError(err error) bool {
	return errors.Is(err, specs.ErrValidation) ||
		errors.Is(err, specs.ErrCategoryLocked) ||
		errors.Is(err, specs.ErrStaleWrite) ||
		errors.Is(err, specs.ErrExternalCollaborator) ||
		errors.Is(err, specs.ErrNotFound) ||
		errors.Is(err, specs.ErrInvalidTransition)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
