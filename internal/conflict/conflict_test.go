package conflict

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/HendryAvila/specgate/internal/collab"
	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/store"
)

func init() {
	specs.SetClock(func() time.Time {
		return time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	})
}

// scripted returns a fixed verdict and records every query it sees.
type scripted struct {
	mu      sync.Mutex
	verdict collab.Verdict
	err     error
	before  func(q collab.ContradictionQuery)
	queries []collab.ContradictionQuery
}

func (s *scripted) Check(_ context.Context, q collab.ContradictionQuery) (collab.Verdict, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	before := s.before
	s.mu.Unlock()
	if before != nil {
		before(q)
	}
	return s.verdict, s.err
}

type fixture struct {
	store    *store.Store
	checker  *scripted
	detector *Detector
	cfg      *config.Config
	commits  []specs.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "specgate.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if _, err := st.EnsureProject(context.Background(), "p1", "artisan market"); err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}

	f := &fixture{store: st, checker: &scripted{}, cfg: config.Default()}
	f.detector = New(Options{
		Store:   st,
		Checker: f.checker,
		Config:  f.cfg,
		OnCommit: func(_ context.Context, _ string, cat specs.Category) {
			f.commits = append(f.commits, cat)
		},
	})
	return f
}

func (f *fixture) conflictWith(existingID string, confidence float64) {
	f.checker.verdict = collab.Verdict{
		IsConflict:   true,
		ConflictType: specs.ConflictScope,
		Explanation:  "audiences differ",
		Confidence:   confidence,
		ExistingID:   existingID,
	}
}

func (f *fixture) noConflict() {
	f.checker.verdict = collab.Verdict{}
}

func proposal(cat specs.Category, key, value string, confidence float64) specs.Proposal {
	return specs.Proposal{
		ProjectID:  "p1",
		Category:   cat,
		Key:        key,
		Value:      value,
		Confidence: confidence,
		Source:     specs.SourceQuestion,
	}
}

func mustPropose(t *testing.T, f *fixture, p specs.Proposal) *ProposeResult {
	t.Helper()
	res, err := f.detector.Propose(context.Background(), p)
	if err != nil {
		t.Fatalf("Propose(%s/%s): %v", p.Category, p.Key, err)
	}
	return res
}

// pendingConflict commits an original goal and raises a conflict against it.
func pendingConflict(t *testing.T, f *fixture) (*specs.Specification, *specs.Conflict) {
	t.Helper()
	old := mustPropose(t, f, proposal(specs.CategoryGoals, "primary_goal", "local artisans only", 0.9)).Specification
	f.conflictWith(old.ID, 0.9)
	res := mustPropose(t, f, proposal(specs.CategoryGoals, "primary_goal", "international sales", 0.8))
	if res.Outcome != OutcomeConflict {
		t.Fatalf("outcome = %s, want conflict", res.Outcome)
	}
	return old, res.Conflict
}

// --- Propose ---

func TestPropose_FirstSpecificationSkipsChecker(t *testing.T) {
	f := newFixture(t)
	res := mustPropose(t, f, proposal(specs.CategorySecurity, "auth_method", "email+password", 0.9))

	if res.Outcome != OutcomeCommitted || res.Specification == nil {
		t.Fatalf("result = %+v, want committed", res)
	}
	if len(f.checker.queries) != 0 {
		t.Errorf("checker called %d times for an empty category", len(f.checker.queries))
	}
	if len(f.commits) != 1 || f.commits[0] != specs.CategorySecurity {
		t.Errorf("commit hook calls = %v", f.commits)
	}
}

func TestPropose_ValidationNeverReachesStore(t *testing.T) {
	f := newFixture(t)
	tests := []specs.Proposal{
		proposal("astrology", "k", "v", 0.5),
		proposal(specs.CategoryGoals, "", "v", 0.5),
		proposal(specs.CategoryGoals, "k", "v", 1.5),
	}
	for _, p := range tests {
		_, err := f.detector.Propose(context.Background(), p)
		if !errors.Is(err, specs.ErrValidation) {
			t.Errorf("Propose(%+v) error = %v, want validation", p, err)
		}
	}
	all, _ := f.store.ListSpecifications(context.Background(), "p1", "", true)
	if len(all) != 0 {
		t.Errorf("stored %d specifications, want 0", len(all))
	}
}

func TestPropose_SameKeySupersedes(t *testing.T) {
	f := newFixture(t)
	first := mustPropose(t, f, proposal(specs.CategoryTechStack, "database", "postgres", 0.7)).Specification
	second := mustPropose(t, f, proposal(specs.CategoryTechStack, "database", "postgres 16", 0.9)).Specification

	if second.Supersedes != first.ID {
		t.Errorf("supersedes = %q, want %q", second.Supersedes, first.ID)
	}
	q := f.checker.queries[0]
	if q.Existing[0].ID != first.ID {
		t.Errorf("same-key specification should be compared first")
	}
	cur, _ := f.store.ListSpecifications(context.Background(), "p1", specs.CategoryTechStack, false)
	if len(cur) != 1 || cur[0].ID != second.ID {
		t.Errorf("current = %+v, want only %s", cur, second.ID)
	}
}

func TestPropose_LowConfidenceJudgementCommits(t *testing.T) {
	f := newFixture(t)
	old := mustPropose(t, f, proposal(specs.CategoryGoals, "primary_goal", "local artisans only", 0.9)).Specification
	f.conflictWith(old.ID, 0.5)

	res := mustPropose(t, f, proposal(specs.CategoryGoals, "primary_goal", "international sales", 0.8))
	if res.Outcome != OutcomeCommitted {
		t.Errorf("outcome = %s, want committed below the conflict threshold", res.Outcome)
	}
}

func TestPropose_ArtisanScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sec := mustPropose(t, f, proposal(specs.CategorySecurity, "auth_method", "email+password", 0.9))
	if sec.Outcome != OutcomeCommitted {
		t.Fatalf("security outcome = %s", sec.Outcome)
	}
	old, c := pendingConflict(t, f)

	if c.OldSpecificationID != old.ID || c.ConflictType != specs.ConflictScope || c.Status != specs.StatusPending {
		t.Errorf("conflict = %+v", c)
	}
	if c.ProposedValue != "international sales" || c.JudgmentConfidence != 0.9 {
		t.Errorf("conflict proposal = %+v", c)
	}

	// The category is locked until resolution.
	_, err := f.detector.Propose(ctx, proposal(specs.CategoryGoals, "secondary_goal", "grow community", 0.8))
	var locked *specs.CategoryLockedError
	if !errors.As(err, &locked) || locked.ConflictID != c.ID {
		t.Fatalf("error = %v, want CategoryLockedError for %s", err, c.ID)
	}

	// Other categories are unaffected.
	f.noConflict()
	mustPropose(t, f, proposal(specs.CategoryTesting, "strategy", "unit and e2e", 0.8))

	res, err := f.detector.Resolve(ctx, c.ID, specs.ResolutionMerge, "local artisans selling internationally")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Released || res.Specification.Value != "local artisans selling internationally" {
		t.Errorf("resolution = %+v", res)
	}
	if res.Specification.Confidence != 0.9 {
		t.Errorf("merged confidence = %v, want max(0.9, 0.8)", res.Specification.Confidence)
	}

	mustPropose(t, f, proposal(specs.CategoryGoals, "secondary_goal", "grow community", 0.8))
}

func TestPropose_ConflictAgainstOtherKey(t *testing.T) {
	f := newFixture(t)
	mustPropose(t, f, proposal(specs.CategoryDeployment, "target", "on-prem servers", 0.9))
	region := mustPropose(t, f, proposal(specs.CategoryDeployment, "region", "eu-west", 0.9)).Specification

	f.conflictWith(region.ID, 0.8)
	res := mustPropose(t, f, proposal(specs.CategoryDeployment, "hosting", "us-only cloud", 0.8))
	if res.Conflict.OldSpecificationID != region.ID {
		t.Errorf("old specification = %s, want the one the verdict named", res.Conflict.OldSpecificationID)
	}

	// An unknown id falls back to the first compared specification.
	f2 := newFixture(t)
	first := mustPropose(t, f2, proposal(specs.CategoryDeployment, "target", "on-prem servers", 0.9)).Specification
	f2.conflictWith("does-not-exist", 0.8)
	res = mustPropose(t, f2, proposal(specs.CategoryDeployment, "hosting", "cloud", 0.8))
	if res.Conflict.OldSpecificationID != first.ID {
		t.Errorf("fallback old specification = %s, want %s", res.Conflict.OldSpecificationID, first.ID)
	}
}

func TestPropose_MissingVerdictTypeUsesCategory(t *testing.T) {
	f := newFixture(t)
	old := mustPropose(t, f, proposal(specs.CategoryTechStack, "database", "postgres", 0.9)).Specification
	f.checker.verdict = collab.Verdict{IsConflict: true, Confidence: 0.9, ExistingID: old.ID}

	res := mustPropose(t, f, proposal(specs.CategoryTechStack, "database", "mongodb", 0.9))
	if res.Conflict.ConflictType != specs.ConflictTechnology {
		t.Errorf("conflict type = %s, want TECHNOLOGY", res.Conflict.ConflictType)
	}
}

func TestPropose_ExternalFailureCommitsNothing(t *testing.T) {
	f := newFixture(t)
	mustPropose(t, f, proposal(specs.CategoryGoals, "primary_goal", "local artisans only", 0.9))
	f.checker.err = errors.New("model unavailable")

	_, err := f.detector.Propose(context.Background(), proposal(specs.CategoryGoals, "primary_goal", "international", 0.8))
	var ext *specs.ExternalCollaboratorError
	if !errors.As(err, &ext) || ext.Capability != collab.CapCheckContradiction {
		t.Fatalf("error = %v, want ExternalCollaboratorError", err)
	}
	all, _ := f.store.ListSpecifications(context.Background(), "p1", specs.CategoryGoals, true)
	if len(all) != 1 {
		t.Errorf("specifications = %d, want 1", len(all))
	}
	pending, _ := f.store.ListConflicts(context.Background(), "p1", specs.StatusPending)
	if len(pending) != 0 {
		t.Errorf("pending conflicts = %d, want 0", len(pending))
	}
}

func TestPropose_CancelledDuringCheck(t *testing.T) {
	f := newFixture(t)
	mustPropose(t, f, proposal(specs.CategoryGoals, "primary_goal", "local artisans only", 0.9))

	ctx, cancel := context.WithCancel(context.Background())
	f.checker.before = func(collab.ContradictionQuery) { cancel() }

	_, err := f.detector.Propose(ctx, proposal(specs.CategoryGoals, "audience", "makers", 0.8))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	cur, _ := f.store.ListSpecifications(context.Background(), "p1", specs.CategoryGoals, false)
	if len(cur) != 1 {
		t.Errorf("current specifications = %d, want 1", len(cur))
	}
}

func TestPropose_StaleWhenCategoryMovesDuringCheck(t *testing.T) {
	f := newFixture(t)
	mustPropose(t, f, proposal(specs.CategoryGoals, "primary_goal", "local artisans only", 0.9))

	// Another writer commits to the category while the check is in flight.
	other := New(Options{Store: f.store, Checker: &scripted{}, Config: f.cfg})
	f.checker.before = func(collab.ContradictionQuery) {
		f.checker.before = nil
		if _, err := other.Propose(context.Background(), proposal(specs.CategoryGoals, "audience", "makers", 0.8)); err != nil {
			t.Errorf("concurrent Propose: %v", err)
		}
	}

	_, err := f.detector.Propose(context.Background(), proposal(specs.CategoryGoals, "region", "europe", 0.8))
	if !errors.Is(err, specs.ErrStaleWrite) {
		t.Fatalf("error = %v, want stale write", err)
	}
	cur, _ := f.store.ListSpecifications(context.Background(), "p1", specs.CategoryGoals, false)
	if len(cur) != 2 {
		t.Errorf("current specifications = %d, want 2", len(cur))
	}
}

func TestPropose_ConcurrentProposalsNeverBothCommit(t *testing.T) {
	f := newFixture(t)
	old := mustPropose(t, f, proposal(specs.CategoryGoals, "primary_goal", "local artisans only", 0.9)).Specification
	f.conflictWith(old.ID, 0.9)

	// Hold both checks until each has observed the same snapshot.
	var arrived sync.WaitGroup
	arrived.Add(2)
	f.checker.before = func(collab.ContradictionQuery) {
		arrived.Done()
		arrived.Wait()
	}

	values := []string{"international sales", "wholesale only"}
	errs := make([]error, len(values))
	results := make([]*ProposeResult, len(values))
	var wg sync.WaitGroup
	for i, v := range values {
		wg.Add(1)
		go func(i int, v string) {
			defer wg.Done()
			results[i], errs[i] = f.detector.Propose(context.Background(),
				proposal(specs.CategoryGoals, "primary_goal", v, 0.8))
		}(i, v)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
			if results[i].Outcome != OutcomeConflict {
				t.Errorf("outcome = %s, want conflict", results[i].Outcome)
			}
		case errors.Is(err, specs.ErrStaleWrite), errors.Is(err, specs.ErrCategoryLocked):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d proposals succeeded, want exactly 1", succeeded)
	}
	pending, _ := f.store.ListConflicts(context.Background(), "p1", specs.StatusPending)
	if len(pending) != 1 {
		t.Errorf("pending conflicts = %d, want 1", len(pending))
	}
}

func TestPropose_LinkedCategories(t *testing.T) {
	f := newFixture(t)
	f.cfg.LinkedCategories = map[specs.Category][]specs.Category{
		specs.CategoryTechStack: {specs.CategorySecurity},
	}
	residency := mustPropose(t, f, proposal(specs.CategorySecurity, "data_residency", "on-prem only", 0.9)).Specification

	f.conflictWith(residency.ID, 0.85)
	res := mustPropose(t, f, proposal(specs.CategoryTechStack, "hosting", "cloud functions", 0.8))

	if len(f.checker.queries) != 1 || len(f.checker.queries[0].Existing) != 1 {
		t.Fatalf("linked specifications were not compared: %+v", f.checker.queries)
	}
	if res.Outcome != OutcomeConflict || res.Conflict.Category != specs.CategoryTechStack {
		t.Fatalf("result = %+v, want a tech_stack conflict", res)
	}

	// The proposal's category is locked; the linked one is not.
	_, err := f.detector.Propose(context.Background(), proposal(specs.CategoryTechStack, "language", "go", 0.9))
	if !errors.Is(err, specs.ErrCategoryLocked) {
		t.Errorf("tech_stack error = %v, want locked", err)
	}
	f.noConflict()
	mustPropose(t, f, proposal(specs.CategorySecurity, "auth_method", "sso", 0.9))
}

func TestPropose_StaleWhenLinkedCategoryMoves(t *testing.T) {
	f := newFixture(t)
	f.cfg.LinkedCategories = map[specs.Category][]specs.Category{
		specs.CategoryTechStack: {specs.CategorySecurity},
	}
	mustPropose(t, f, proposal(specs.CategorySecurity, "data_residency", "on-prem only", 0.9))

	other := New(Options{Store: f.store, Checker: &scripted{}, Config: config.Default()})
	f.checker.before = func(collab.ContradictionQuery) {
		f.checker.before = nil
		if _, err := other.Propose(context.Background(), proposal(specs.CategorySecurity, "auth_method", "sso", 0.9)); err != nil {
			t.Errorf("concurrent Propose: %v", err)
		}
	}

	_, err := f.detector.Propose(context.Background(), proposal(specs.CategoryTechStack, "hosting", "cloud", 0.8))
	var stale *specs.StaleWriteError
	if !errors.As(err, &stale) || stale.Category != specs.CategorySecurity {
		t.Fatalf("error = %v, want stale write on security", err)
	}
}

// --- Resolve ---

func TestResolve_KeepOld(t *testing.T) {
	f := newFixture(t)
	old, c := pendingConflict(t, f)
	f.commits = nil

	res, err := f.detector.Resolve(context.Background(), c.ID, specs.ResolutionKeepOld, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Released || res.Specification != nil {
		t.Errorf("result = %+v", res)
	}
	if res.Conflict.ResolvedSpecID != old.ID || res.Conflict.ResolvedValue != old.Value {
		t.Errorf("conflict = %+v", res.Conflict)
	}
	cur, _ := f.store.ListSpecifications(context.Background(), "p1", specs.CategoryGoals, false)
	if len(cur) != 1 || cur[0].ID != old.ID {
		t.Errorf("current = %+v, want the old specification only", cur)
	}
	if len(f.commits) != 0 {
		t.Errorf("keep_old must not trigger the commit hook")
	}
}

func TestResolve_Replace(t *testing.T) {
	f := newFixture(t)
	old, c := pendingConflict(t, f)

	res, err := f.detector.Resolve(context.Background(), c.ID, specs.ResolutionReplace, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sp := res.Specification
	if sp == nil || sp.Value != "international sales" || sp.Supersedes != old.ID || sp.Confidence != 0.8 {
		t.Fatalf("specification = %+v", sp)
	}
	prev, _ := f.store.GetSpecification(context.Background(), old.ID)
	if prev.IsCurrent || prev.SupersededBy != sp.ID {
		t.Errorf("old = %+v, want superseded by %s", prev, sp.ID)
	}
	stored, _ := f.store.GetConflict(context.Background(), c.ID)
	if stored.Status != specs.StatusResolved || stored.Resolution != specs.ResolutionReplace || stored.ResolvedAt == "" {
		t.Errorf("stored conflict = %+v", stored)
	}
}

func TestResolve_ReplaceAcrossKeys(t *testing.T) {
	f := newFixture(t)
	region := mustPropose(t, f, proposal(specs.CategoryDeployment, "region", "eu-west", 0.9)).Specification
	f.conflictWith(region.ID, 0.8)
	c := mustPropose(t, f, proposal(specs.CategoryDeployment, "hosting", "us-only cloud", 0.8)).Conflict

	res, err := f.detector.Resolve(context.Background(), c.ID, specs.ResolutionReplace, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cur, _ := f.store.ListSpecifications(context.Background(), "p1", specs.CategoryDeployment, false)
	if len(cur) != 1 || cur[0].ID != res.Specification.ID || cur[0].Key != "hosting" {
		t.Errorf("current = %+v, want only the hosting specification", cur)
	}
}

func TestResolve_MergeRequiresClarification(t *testing.T) {
	f := newFixture(t)
	_, c := pendingConflict(t, f)

	_, err := f.detector.Resolve(context.Background(), c.ID, specs.ResolutionMerge, "")
	var verr *specs.ValidationError
	if !errors.As(err, &verr) || verr.Field != "clarification" {
		t.Fatalf("error = %v, want clarification validation error", err)
	}
}

func TestResolve_ClarifyKeepsLock(t *testing.T) {
	f := newFixture(t)
	_, c := pendingConflict(t, f)

	for i := 1; i <= 2; i++ {
		res, err := f.detector.Resolve(context.Background(), c.ID, specs.ResolutionClarify, "which market first?")
		if err != nil {
			t.Fatalf("Resolve clarify: %v", err)
		}
		if res.Released || res.Conflict.Status != specs.StatusPending || res.Conflict.ClarifyCount != i {
			t.Errorf("round %d: %+v", i, res.Conflict)
		}
	}
	_, err := f.detector.Propose(context.Background(), proposal(specs.CategoryGoals, "audience", "makers", 0.8))
	if !errors.Is(err, specs.ErrCategoryLocked) {
		t.Errorf("error = %v, want category still locked", err)
	}
}

func TestResolve_Errors(t *testing.T) {
	f := newFixture(t)
	_, c := pendingConflict(t, f)
	ctx := context.Background()

	if _, err := f.detector.Resolve(ctx, "missing", specs.ResolutionKeepOld, ""); !errors.Is(err, specs.ErrNotFound) {
		t.Errorf("unknown conflict error = %v, want not found", err)
	}
	if _, err := f.detector.Resolve(ctx, c.ID, "ignore", ""); !errors.Is(err, specs.ErrValidation) {
		t.Errorf("unknown resolution error = %v, want validation", err)
	}
	if _, err := f.detector.Resolve(ctx, c.ID, specs.ResolutionKeepOld, ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_, err := f.detector.Resolve(ctx, c.ID, specs.ResolutionReplace, "")
	var verr *specs.ValidationError
	if !errors.As(err, &verr) || verr.Field != "conflict_id" {
		t.Errorf("second resolution error = %v, want already resolved", err)
	}
}

func TestResolve_LinkedSpecificationRefinedWhilePending(t *testing.T) {
	tests := []struct {
		resolution    specs.Resolution
		clarification string
		wantValue     string
	}{
		{specs.ResolutionKeepOld, "", "EU region only"},
		{specs.ResolutionReplace, "", "cloud functions"},
		{specs.ResolutionMerge, "cloud functions in an EU region", "cloud functions in an EU region"},
	}
	for _, tt := range tests {
		t.Run(string(tt.resolution), func(t *testing.T) {
			f := newFixture(t)
			f.cfg.LinkedCategories = map[specs.Category][]specs.Category{
				specs.CategoryTechStack: {specs.CategorySecurity},
			}
			ctx := context.Background()
			residency := mustPropose(t, f, proposal(specs.CategorySecurity, "data_residency", "on-prem only", 0.9)).Specification
			f.conflictWith(residency.ID, 0.85)
			c := mustPropose(t, f, proposal(specs.CategoryTechStack, "hosting", "cloud functions", 0.8)).Conflict

			// security is not locked, so its specification moves on.
			f.noConflict()
			refined := mustPropose(t, f, proposal(specs.CategorySecurity, "data_residency", "EU region only", 0.9)).Specification

			res, err := f.detector.Resolve(ctx, c.ID, tt.resolution, tt.clarification)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !res.Released || res.Conflict.ResolvedValue != tt.wantValue {
				t.Errorf("result = %+v, want released with %q", res.Conflict, tt.wantValue)
			}

			if tt.resolution == specs.ResolutionKeepOld {
				if res.Conflict.ResolvedSpecID != refined.ID {
					t.Errorf("ResolvedSpecID = %s, want the refined %s", res.Conflict.ResolvedSpecID, refined.ID)
				}
			} else {
				if res.Specification.Supersedes != refined.ID {
					t.Errorf("Supersedes = %s, want the refined %s", res.Specification.Supersedes, refined.ID)
				}
				stale, _ := f.store.GetSpecification(ctx, refined.ID)
				if stale.IsCurrent {
					t.Error("the refined specification should be superseded")
				}
			}

			// The proposal's category is free again.
			if _, err := f.detector.Propose(ctx, proposal(specs.CategoryTechStack, "language", "go", 0.9)); err != nil {
				t.Errorf("tech_stack still locked: %v", err)
			}
		})
	}
}

func TestResolve_FollowsSameKeyCommittedUnderneath(t *testing.T) {
	f := newFixture(t)
	old, c := pendingConflict(t, f)
	ctx := context.Background()

	rev, _ := f.store.Revision(ctx, "p1", specs.CategoryGoals)
	var underneath *specs.Specification
	err := f.store.WriteCategory(ctx, "p1", specs.CategoryGoals, rev, func(w *store.CategoryWriter) error {
		var err error
		underneath, err = w.Commit(proposal(specs.CategoryGoals, old.Key, "something else", 0.9))
		return err
	})
	if err != nil {
		t.Fatalf("direct commit: %v", err)
	}

	res, err := f.detector.Resolve(ctx, c.ID, specs.ResolutionReplace, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cur, _ := f.store.ListSpecifications(ctx, "p1", specs.CategoryGoals, false)
	if len(cur) != 1 || cur[0].ID != res.Specification.ID || res.Specification.Supersedes != underneath.ID {
		t.Errorf("current = %+v, want only the replacement superseding %s", cur, underneath.ID)
	}
}
