package collab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/specs"
)

func current(cat specs.Category, key, value string, confidence float64) specs.Specification {
	return specs.Specification{
		ID: string(cat) + "/" + key, ProjectID: "p1", Category: cat, Key: key,
		Value: value, Confidence: confidence, IsCurrent: true,
	}
}

func propose(cat specs.Category, key, value string) specs.Proposal {
	return specs.Proposal{ProjectID: "p1", Category: cat, Key: key, Value: value, Confidence: 0.85, Source: specs.SourceChat}
}

// --- Classify ---

func TestHeuristic_Classify(t *testing.T) {
	h := NewHeuristic(config.Default())
	facets := config.DefaultFacets()[specs.CategorySecurity]
	got, err := h.Classify(context.Background(), specs.CategorySecurity, facets, []specs.Specification{
		current(specs.CategorySecurity, "auth_method", "email+password", 0.9),
		current(specs.CategorySecurity, "transport", "TLS everywhere", 0.5),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got["authentication"] != 0.9 {
		t.Errorf("authentication = %v, want 0.9", got["authentication"])
	}
	if got["encryption_in_transit"] != 0.5 {
		t.Errorf("encryption_in_transit = %v, want 0.5", got["encryption_in_transit"])
	}
	if got["authorization"] != 0 {
		t.Errorf("authorization = %v, want 0", got["authorization"])
	}
}

func TestMatchKeyword(t *testing.T) {
	text := "language go framework none monetization plan"
	words := tokens(text)
	tests := []struct {
		kw   string
		want bool
	}{
		{"go", true},
		{"goo", false},
		{"monetiz", true},
		{"plan", true},
		{"business model", false},
		{"framework none", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := matchKeyword(tt.kw, text, words); got != tt.want {
			t.Errorf("matchKeyword(%q) = %v, want %v", tt.kw, got, tt.want)
		}
	}
	if matchKeyword("go", "a good idea", tokens("a good idea")) {
		t.Error("short keyword must not match inside a longer word")
	}
}

// --- Check ---

func TestHeuristic_Check_SameKeyDivergence(t *testing.T) {
	h := NewHeuristic(config.Default())
	v, err := h.Check(context.Background(), ContradictionQuery{
		Proposal: propose(specs.CategoryGoals, "primary_goal", "international sales"),
		Existing: []specs.Specification{current(specs.CategoryGoals, "primary_goal", "local artisans only", 0.9)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsConflict || v.ConflictType != specs.ConflictScope || v.ExistingID != "goals/primary_goal" {
		t.Errorf("verdict = %+v, want SCOPE conflict with goals/primary_goal", v)
	}
	if v.Confidence < 0.7 {
		t.Errorf("confidence = %v, want >= 0.7", v.Confidence)
	}
}

func TestHeuristic_Check_RefinementIsNotConflict(t *testing.T) {
	h := NewHeuristic(config.Default())
	tests := []struct {
		name, old, proposed string
	}{
		{"identical", "email+password", "Email+Password"},
		{"refinement", "email and password", "email and password with mfa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := h.Check(context.Background(), ContradictionQuery{
				Proposal: propose(specs.CategorySecurity, "auth_method", tt.proposed),
				Existing: []specs.Specification{current(specs.CategorySecurity, "auth_method", tt.old, 0.9)},
			})
			if v.IsConflict {
				t.Errorf("verdict = %+v, want no conflict", v)
			}
		})
	}
}

func TestHeuristic_Check_ExclusiveTermsAcrossKeys(t *testing.T) {
	h := NewHeuristic(config.Default())
	v, _ := h.Check(context.Background(), ContradictionQuery{
		Proposal: propose(specs.CategoryTechStack, "hosting", "cloud functions"),
		Existing: []specs.Specification{
			current(specs.CategoryTechStack, "language", "go", 0.9),
			current(specs.CategorySecurity, "data_residency", "on-prem servers only", 0.9),
		},
	})
	if !v.IsConflict || v.ExistingID != "security/data_residency" || v.ConflictType != specs.ConflictTechnology {
		t.Errorf("verdict = %+v, want TECHNOLOGY conflict with security/data_residency", v)
	}
}

func TestTypeFor(t *testing.T) {
	tests := map[specs.Category]specs.ConflictType{
		specs.CategoryGoals:         specs.ConflictScope,
		specs.CategoryRequirements:  specs.ConflictRequirements,
		specs.CategoryTechStack:     specs.ConflictTechnology,
		specs.CategoryScalability:   specs.ConflictArchitecture,
		specs.CategoryDocumentation: specs.ConflictOther,
	}
	for cat, want := range tests {
		if got := TypeFor(cat); got != want {
			t.Errorf("TypeFor(%s) = %s, want %s", cat, got, want)
		}
	}
}

// --- Extract ---

func TestHeuristic_Extract(t *testing.T) {
	h := NewHeuristic(config.Default())
	raw := `We talked a lot today.
- security/Auth Method: email+password (0.9)
* goals/primary_goal: local artisans only
tech_stack/database: postgres (high)
no category here: ignored
`
	got, err := h.Extract(context.Background(), raw, ProjectContext{ProjectID: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("Extract returned %d proposals, want 3: %+v", len(got), got)
	}
	if got[0].Key != "auth_method" || got[0].Confidence != 0.9 || got[0].Value != "email+password" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Category != specs.CategoryGoals || got[1].Confidence != defaultExtractConfidence {
		t.Errorf("second = %+v", got[1])
	}
	if got[2].Value != "postgres (high)" {
		t.Errorf("non-numeric suffix should stay in the value: %q", got[2].Value)
	}
	for _, p := range got {
		if p.ProjectID != "p1" || p.Source != specs.SourceChat {
			t.Errorf("proposal = %+v", p)
		}
	}
}

// --- Resilient ---

// flaky fails the first n calls of every capability.
type flaky struct {
	failures int
	calls    int
}

var errFlaky = errors.New("flaky")

func (f *flaky) Extract(context.Context, string, ProjectContext) ([]specs.Proposal, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errFlaky
	}
	return []specs.Proposal{{Key: "k"}}, nil
}

func (f *flaky) Check(context.Context, ContradictionQuery) (Verdict, error) {
	f.calls++
	if f.calls <= f.failures {
		return Verdict{}, errFlaky
	}
	return Verdict{IsConflict: true}, nil
}

func (f *flaky) Classify(context.Context, specs.Category, []config.Facet, []specs.Specification) (map[string]float64, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errFlaky
	}
	return map[string]float64{"a": 1}, nil
}

func fastResilient(inner Capabilities, attempts int) *Resilient {
	r := NewResilient(inner, attempts, time.Second)
	r.initialDelay = time.Millisecond
	return r
}

func TestResilient_RetriesTransientFailure(t *testing.T) {
	f := &flaky{failures: 1}
	v, err := fastResilient(f, 2).Check(context.Background(), ContradictionQuery{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !v.IsConflict || f.calls != 2 {
		t.Errorf("verdict = %+v after %d calls", v, f.calls)
	}
}

func TestResilient_GivesUp(t *testing.T) {
	f := &flaky{failures: 5}
	_, err := fastResilient(f, 2).Classify(context.Background(), specs.CategoryGoals, nil, nil)
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if f.calls != 2 {
		t.Errorf("calls = %d, want 2", f.calls)
	}
}

func TestResilient_PassesThroughExtract(t *testing.T) {
	got, err := fastResilient(&flaky{}, 1).Extract(context.Background(), "x", ProjectContext{})
	if err != nil || len(got) != 1 {
		t.Errorf("Extract = %+v, %v", got, err)
	}
}
