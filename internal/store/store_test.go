package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HendryAvila/specgate/internal/specs"
)

func init() {
	// Freeze time for deterministic tests.
	specs.SetClock(func() time.Time {
		return time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	})
}

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "specgate.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ensureProject(t *testing.T, s *Store, id string) {
	t.Helper()
	if _, err := s.EnsureProject(context.Background(), id, ""); err != nil {
		t.Fatalf("EnsureProject(%s): %v", id, err)
	}
}

// commit writes one proposal at the category's current revision.
func commit(t *testing.T, s *Store, p specs.Proposal) *specs.Specification {
	t.Helper()
	ctx := context.Background()
	rev, err := s.Revision(ctx, p.ProjectID, p.Category)
	if err != nil {
		t.Fatalf("Revision: %v", err)
	}
	var out *specs.Specification
	err = s.WriteCategory(ctx, p.ProjectID, p.Category, rev, func(w *CategoryWriter) error {
		sp, err := w.Commit(p)
		out = sp
		return err
	})
	if err != nil {
		t.Fatalf("commit %s/%s: %v", p.Category, p.Key, err)
	}
	return out
}

func proposal(cat specs.Category, key, value string) specs.Proposal {
	return specs.Proposal{
		ProjectID:  "p1",
		Category:   cat,
		Key:        key,
		Value:      value,
		Confidence: 0.9,
		Source:     specs.SourceQuestion,
	}
}

// --- Open ---

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := Open(filepath.Join(dir, "specgate.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(dir, "specgate.db")); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestOpen_IdempotentReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specgate.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := s1.EnsureProject(context.Background(), "p1", "Artisan market"); err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()
	p, err := s2.GetProject(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetProject after reopen: %v", err)
	}
	if p.Name != "Artisan market" || p.CurrentPhase != specs.PhaseDiscovery {
		t.Errorf("project = %+v", p)
	}
}

// --- Projects ---

func TestEnsureProject_KeepsFirstName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.EnsureProject(ctx, "p1", "first"); err != nil {
		t.Fatal(err)
	}
	p, err := s.EnsureProject(ctx, "p1", "second")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "first" {
		t.Errorf("Name = %q, want first", p.Name)
	}
	list, err := s.ListProjects(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListProjects = %v, %v", list, err)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProject(context.Background(), "ghost")
	if !errors.Is(err, specs.ErrNotFound) {
		t.Errorf("GetProject(ghost) = %v, want ErrNotFound", err)
	}
}

// --- Specifications ---

func TestCommit_SupersedesSameKey(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	ctx := context.Background()

	first := commit(t, s, proposal(specs.CategoryTechStack, "database", "postgres"))
	second := commit(t, s, proposal(specs.CategoryTechStack, "database", "sqlite"))

	if second.Supersedes != first.ID {
		t.Errorf("Supersedes = %q, want %q", second.Supersedes, first.ID)
	}
	old, err := s.GetSpecification(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if old.IsCurrent || old.SupersededBy != second.ID {
		t.Errorf("old spec = %+v, want superseded by %s", old, second.ID)
	}

	current, err := s.ListSpecifications(ctx, "p1", specs.CategoryTechStack, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(current) != 1 || current[0].Value != "sqlite" {
		t.Errorf("current = %+v, want only sqlite", current)
	}
	history, err := s.ListSpecifications(ctx, "p1", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].ID != first.ID {
		t.Errorf("history = %+v, want both records oldest first", history)
	}
}

func TestCommit_SupersedeExplicitID(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	old := commit(t, s, proposal(specs.CategoryGoals, "market", "local only"))
	commit(t, s, proposal(specs.CategoryGoals, "primary_goal", "local first"))

	ctx := context.Background()
	rev, _ := s.Revision(ctx, "p1", specs.CategoryGoals)
	err := s.WriteCategory(ctx, "p1", specs.CategoryGoals, rev, func(w *CategoryWriter) error {
		_, err := w.Commit(proposal(specs.CategoryGoals, "primary_goal", "local, then international"), old.ID)
		return err
	})
	if err != nil {
		t.Fatalf("WriteCategory: %v", err)
	}
	current, _ := s.ListSpecifications(ctx, "p1", specs.CategoryGoals, false)
	if len(current) != 1 || current[0].Supersedes != old.ID {
		t.Errorf("current = %+v, want one spec superseding %s", current, old.ID)
	}
}

func TestWriteCategory_StaleRevision(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	ctx := context.Background()

	rev, _ := s.Revision(ctx, "p1", specs.CategorySecurity)
	commit(t, s, proposal(specs.CategorySecurity, "auth_method", "sso"))

	called := false
	err := s.WriteCategory(ctx, "p1", specs.CategorySecurity, rev, func(w *CategoryWriter) error {
		called = true
		return nil
	})
	var stale *specs.StaleWriteError
	if !errors.As(err, &stale) {
		t.Fatalf("WriteCategory with old revision = %v, want StaleWriteError", err)
	}
	if stale.Expected != 0 || stale.Actual != 1 {
		t.Errorf("stale = %+v, want expected 0 actual 1", stale)
	}
	if called {
		t.Error("fn must not run after a stale revision")
	}
}

func TestWriteCategory_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WriteCategory(ctx, "p1", specs.CategoryTesting, 0, func(w *CategoryWriter) error {
		if _, err := w.Commit(proposal(specs.CategoryTesting, "unit_tests", "go test")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteCategory = %v, want boom", err)
	}
	list, _ := s.ListSpecifications(ctx, "p1", "", true)
	if len(list) != 0 {
		t.Errorf("specifications after rollback = %d, want 0", len(list))
	}
	if rev, _ := s.Revision(ctx, "p1", specs.CategoryTesting); rev != 0 {
		t.Errorf("revision after rollback = %d, want 0", rev)
	}
}

func TestWriteCategory_CommitFailureRollsBack(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	s.hooks.commit = func(tx *sql.Tx) error { return errors.New("disk full") }

	err := s.WriteCategory(context.Background(), "p1", specs.CategoryTesting, 0, func(w *CategoryWriter) error {
		_, err := w.Commit(proposal(specs.CategoryTesting, "unit_tests", "go test"))
		return err
	})
	if err == nil {
		t.Fatal("expected commit failure to surface")
	}
	s.hooks.commit = nil
	list, _ := s.ListSpecifications(context.Background(), "p1", "", true)
	if len(list) != 0 {
		t.Errorf("specifications after failed commit = %d, want 0", len(list))
	}
}

// --- Conflicts ---

func TestCreateConflict_SecondPendingIsLocked(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	ctx := context.Background()
	old := commit(t, s, proposal(specs.CategoryGoals, "primary_goal", "local artisans only"))

	create := func(value string) error {
		rev, _ := s.Revision(ctx, "p1", specs.CategoryGoals)
		return s.WriteCategory(ctx, "p1", specs.CategoryGoals, rev, func(w *CategoryWriter) error {
			return w.CreateConflict(&specs.Conflict{
				OldSpecificationID: old.ID,
				ProposedKey:        "primary_goal",
				ProposedValue:      value,
				ProposedConfidence: 0.85,
				ProposedSource:     specs.SourceChat,
				ConflictType:       specs.ConflictScope,
			})
		})
	}

	if err := create("international sales"); err != nil {
		t.Fatalf("first conflict: %v", err)
	}
	err := create("nationwide")
	var locked *specs.CategoryLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("second conflict = %v, want CategoryLockedError", err)
	}

	pending, err := s.ListConflicts(ctx, "p1", specs.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || locked.ConflictID != pending[0].ID {
		t.Errorf("pending = %+v, locked = %+v", pending, locked)
	}
}

func TestSaveConflict_ResolvesAndUnlocks(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	ctx := context.Background()
	old := commit(t, s, proposal(specs.CategoryGoals, "primary_goal", "local"))

	var c specs.Conflict
	rev, _ := s.Revision(ctx, "p1", specs.CategoryGoals)
	if err := s.WriteCategory(ctx, "p1", specs.CategoryGoals, rev, func(w *CategoryWriter) error {
		c = specs.Conflict{OldSpecificationID: old.ID, ProposedKey: "primary_goal",
			ProposedValue: "global", ProposedSource: specs.SourceChat, ConflictType: specs.ConflictScope}
		return w.CreateConflict(&c)
	}); err != nil {
		t.Fatal(err)
	}

	rev, _ = s.Revision(ctx, "p1", specs.CategoryGoals)
	if err := s.WriteCategory(ctx, "p1", specs.CategoryGoals, rev, func(w *CategoryWriter) error {
		c.Status = specs.StatusResolved
		c.Resolution = specs.ResolutionKeepOld
		c.ResolvedAt = specs.Now()
		return w.SaveConflict(&c)
	}); err != nil {
		t.Fatal(err)
	}

	view, err := s.ReadProject(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Pending) != 0 {
		t.Errorf("pending after resolution = %d, want 0", len(view.Pending))
	}
	got, err := s.GetConflict(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Resolution != specs.ResolutionKeepOld || got.ResolvedAt == "" {
		t.Errorf("conflict = %+v", got)
	}
}

func TestReadCategory_IncludesLinked(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	commit(t, s, proposal(specs.CategorySecurity, "auth_method", "sso"))
	commit(t, s, proposal(specs.CategoryTechStack, "hosting", "on-prem"))
	commit(t, s, proposal(specs.CategoryTesting, "unit_tests", "go test"))

	st, err := s.ReadCategory(context.Background(), "p1", specs.CategorySecurity,
		[]specs.Category{specs.CategoryTechStack})
	if err != nil {
		t.Fatal(err)
	}
	if st.Revision != 1 || st.Pending != nil {
		t.Errorf("state = %+v", st)
	}
	if len(st.Current) != 2 || st.Current[0].Category != specs.CategorySecurity {
		t.Errorf("current = %+v, want security first then tech_stack", st.Current)
	}
}

// --- Gate decisions ---

func TestGateDecisions_AppendAndOverride(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	ctx := context.Background()

	d := &specs.GateDecision{
		ProjectID:        "p1",
		OperationType:    specs.OpGenerateCode,
		PathProceed:      specs.NewPathCost(0, 0.7, 80),
		PathRemediate:    specs.NewPathCost(3, 0.05, 2),
		Blocking:         true,
		WouldBlock:       true,
		Severity:         specs.SeverityCritical,
		CriticalGapCount: 1,
		RiskMargin:       2,
		Gaps: []specs.GapCost{{Category: specs.CategorySecurity, Priority: specs.PriorityCritical,
			Completeness: 20, OutstandingItems: 4, RemediationCost: 2}},
		Alternatives: []specs.Alternative{{ID: "guided_qa", Label: "Resolve via guided Q&A"}},
	}
	if err := s.SaveGateDecision(ctx, d); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveGateDecision(ctx, &specs.GateDecision{ProjectID: "p1", OperationType: specs.OpSkipGaps,
		Severity: specs.SeverityNone, RiskMargin: 2}); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListGateDecisions(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != d.ID {
		t.Fatalf("decisions = %+v, want two, oldest first", list)
	}
	if g, ok := list[0].GapFor(specs.CategorySecurity); !ok || g.RemediationCost != 2 {
		t.Errorf("security gap = %+v, %v", g, ok)
	}
	if list[1].Gaps == nil || list[1].Alternatives == nil {
		t.Error("empty slices should decode as empty, not nil")
	}

	o, err := s.MarkOverridden(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !o.Overridden || o.Blocking || !o.WouldBlock {
		t.Errorf("overridden decision = %+v", o)
	}
	if _, err := s.MarkOverridden(ctx, "ghost"); !errors.Is(err, specs.ErrNotFound) {
		t.Errorf("MarkOverridden(ghost) = %v, want ErrNotFound", err)
	}
}

// --- Transitions & issues ---

func TestTransition_RecordsAuditAndSnapshots(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	ctx := context.Background()

	snaps := []specs.MaturitySnapshot{{ProjectID: "p1", Category: specs.CategoryGoals, Score: 70, ComputedAt: specs.Now()}}
	tr := &specs.PhaseTransition{ProjectID: "p1", FromPhase: specs.PhaseDiscovery, ToPhase: specs.PhaseAnalysis, OverallScore: 65}
	if err := s.Transition(ctx, tr, snaps, TransitionCheck{}); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	p, _ := s.GetProject(ctx, "p1")
	if p.CurrentPhase != specs.PhaseAnalysis {
		t.Errorf("phase = %s, want analysis", p.CurrentPhase)
	}
	list, _ := s.ListTransitions(ctx, "p1")
	if len(list) != 1 || list[0].ID != tr.ID {
		t.Errorf("transitions = %+v", list)
	}
	history, _ := s.ListSnapshots(ctx, "p1", specs.CategoryGoals)
	if len(history) != 1 || history[0].Reason != ReasonTransition {
		t.Errorf("snapshots = %+v", history)
	}

	again := &specs.PhaseTransition{ProjectID: "p1", FromPhase: specs.PhaseDiscovery, ToPhase: specs.PhaseAnalysis}
	if err := s.Transition(ctx, again, nil, TransitionCheck{}); !errors.Is(err, specs.ErrStaleWrite) {
		t.Errorf("Transition from stale phase = %v, want ErrStaleWrite", err)
	}
}

func TestTransition_RevalidatesWhatTheGuardsSaw(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	ctx := context.Background()
	goal := commit(t, s, proposal(specs.CategoryGoals, "primary_goal", "local artisans only"))

	view, err := s.ReadProject(ctx, "p1")
	if err != nil {
		t.Fatalf("ReadProject: %v", err)
	}
	if view.Revisions[specs.CategoryGoals] != 1 {
		t.Fatalf("revisions = %v, want goals at 1", view.Revisions)
	}
	seen := TransitionCheck{Revisions: view.Revisions}
	attempt := func(check TransitionCheck) error {
		return s.Transition(ctx, &specs.PhaseTransition{
			ProjectID: "p1", FromPhase: specs.PhaseDiscovery, ToPhase: specs.PhaseAnalysis,
		}, nil, check)
	}

	// A conflict raised after the read.
	err = s.WriteCategory(ctx, "p1", specs.CategoryGoals, 1, func(w *CategoryWriter) error {
		return w.CreateConflict(&specs.Conflict{
			OldSpecificationID: goal.ID,
			ProposedKey:        "primary_goal",
			ProposedValue:      "international sales",
			ProposedConfidence: 0.85,
			ProposedSource:     specs.SourceChat,
			ConflictType:       specs.ConflictScope,
		})
	})
	if err != nil {
		t.Fatalf("CreateConflict: %v", err)
	}
	var stale *specs.StaleWriteError
	if err := attempt(seen); !errors.As(err, &stale) || stale.Category != specs.CategoryGoals {
		t.Fatalf("Transition = %v, want stale write on goals", err)
	}

	// Even at the fresh revisions, the pending conflict refuses.
	view, _ = s.ReadProject(ctx, "p1")
	if err := attempt(TransitionCheck{Revisions: view.Revisions}); !errors.Is(err, specs.ErrStaleWrite) {
		t.Fatalf("Transition with a pending conflict = %v, want ErrStaleWrite", err)
	}
	if p, _ := s.GetProject(ctx, "p1"); p.CurrentPhase != specs.PhaseDiscovery {
		t.Errorf("phase = %s, want the transition rolled back", p.CurrentPhase)
	}
}

func TestTransition_OpenIssueRefusesWhenRequired(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	ctx := context.Background()
	if _, err := s.ReportIssue(ctx, "p1", "payment service has no owner"); err != nil {
		t.Fatal(err)
	}
	tr := func() *specs.PhaseTransition {
		return &specs.PhaseTransition{ProjectID: "p1", FromPhase: specs.PhaseDiscovery, ToPhase: specs.PhaseAnalysis}
	}
	if err := s.Transition(ctx, tr(), nil, TransitionCheck{NoOpenIssues: true}); !errors.Is(err, specs.ErrStaleWrite) {
		t.Errorf("Transition = %v, want ErrStaleWrite", err)
	}
	if err := s.Transition(ctx, tr(), nil, TransitionCheck{}); err != nil {
		t.Errorf("Transition without the issue check = %v", err)
	}
}

func TestArchitectureIssues_ReportAndResolve(t *testing.T) {
	s := newTestStore(t)
	ensureProject(t, s, "p1")
	ctx := context.Background()

	is, err := s.ReportIssue(ctx, "p1", "payment service owns two databases")
	if err != nil {
		t.Fatal(err)
	}
	open, _ := s.OpenIssues(ctx, "p1")
	if len(open) != 1 {
		t.Fatalf("open issues = %d, want 1", len(open))
	}
	if _, err := s.ResolveIssue(ctx, is.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ResolveIssue(ctx, is.ID); !errors.Is(err, specs.ErrValidation) {
		t.Errorf("resolving twice = %v, want ErrValidation", err)
	}
	if _, err := s.ResolveIssue(ctx, "ghost"); !errors.Is(err, specs.ErrNotFound) {
		t.Errorf("ResolveIssue(ghost) = %v, want ErrNotFound", err)
	}
	if _, err := s.ReportIssue(ctx, "p1", ""); !errors.Is(err, specs.ErrValidation) {
		t.Errorf("ReportIssue(empty) = %v, want ErrValidation", err)
	}
}
