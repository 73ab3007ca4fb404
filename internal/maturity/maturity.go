// Package maturity scores how complete a project's specifications are.
//
// Each category has a checklist of facets. The facet classifier reports a
// coverage confidence per facet; a facet at or above the facet threshold
// earns full credit, anything below earns its confidence as partial credit.
// Category scores are 100 × credit / facets, and the overall score is the
// weighted mean across scored categories.
//
// Scoring is a pure function of checklist, specifications, and
// classifications. Nothing is cached between calls.
package maturity

import (
	"context"
	"math"

	"github.com/HendryAvila/specgate/internal/collab"
	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/specs"
)

// Input is everything a scoring pass needs.
type Input struct {
	ProjectID string
	Phase     specs.Phase
	Current   []specs.Specification // current specifications, any category
	Target    float64               // readiness target; 0 means the configured default
}

// Scorer computes MaturityReports.
type Scorer struct {
	cfg        *config.Config
	classifier collab.FacetClassifier
}

// New creates a Scorer.
func New(cfg *config.Config, classifier collab.FacetClassifier) *Scorer {
	return &Scorer{cfg: cfg, classifier: classifier}
}

// Score computes the maturity of every scored category plus the overall
// score. Categories without specifications score 0 and skip the classifier.
func (s *Scorer) Score(ctx context.Context, in Input) (*specs.MaturityReport, error) {
	target := in.Target
	if target <= 0 {
		target = s.cfg.DefaultTarget
	}
	checklist := s.cfg.Checklist(in.Phase)
	byCategory := groupByCategory(in.Current)
	now := specs.Now()

	report := &specs.MaturityReport{
		ProjectID:  in.ProjectID,
		Phase:      in.Phase,
		Target:     target,
		ComputedAt: now,
		Categories: make([]specs.CategoryMaturity, 0, len(specs.Taxonomy)),
	}

	for _, cat := range specs.Taxonomy {
		cm, err := s.category(ctx, in.ProjectID, cat, checklist[cat], byCategory[cat], now)
		if err != nil {
			return nil, err
		}
		report.Categories = append(report.Categories, cm)
	}

	report.OverallScore = Overall(report.Categories)
	report.Readiness = Readiness(report.Categories, target)
	return report, nil
}

// ScoreCategory scores one category of in, consulting the classifier for
// that category only.
func (s *Scorer) ScoreCategory(ctx context.Context, in Input, cat specs.Category) (specs.CategoryMaturity, error) {
	if err := specs.ValidateCategory(cat); err != nil {
		return specs.CategoryMaturity{}, err
	}
	return s.category(ctx, in.ProjectID, cat, s.cfg.Checklist(in.Phase)[cat],
		groupByCategory(in.Current)[cat], specs.Now())
}

func (s *Scorer) category(ctx context.Context, projectID string, cat specs.Category, facets []config.Facet, current []specs.Specification, now string) (specs.CategoryMaturity, error) {
	var coverage map[string]float64
	if len(current) > 0 && len(facets) > 0 {
		var err error
		coverage, err = s.classifier.Classify(ctx, cat, facets, current)
		if err != nil {
			return specs.CategoryMaturity{}, &specs.ExternalCollaboratorError{Capability: collab.CapClassifyFacets, Err: err}
		}
	}

	detail := Facets(facets, coverage, s.cfg.FacetThreshold)
	return specs.CategoryMaturity{
		MaturitySnapshot: specs.MaturitySnapshot{
			ProjectID:  projectID,
			Category:   cat,
			Score:      CategoryScore(detail),
			ComputedAt: now,
		},
		Weight:         s.cfg.Weight(cat),
		Specifications: len(current),
		Facets:         detail,
	}, nil
}

// Facets applies the facet threshold to raw classifier coverage, in
// checklist order.
func Facets(facets []config.Facet, coverage map[string]float64, threshold float64) []specs.FacetCoverage {
	out := make([]specs.FacetCoverage, 0, len(facets))
	for _, f := range facets {
		c := clamp01(coverage[f.Name])
		fc := specs.FacetCoverage{Facet: f.Name, Coverage: c, Credit: c}
		if c >= threshold {
			fc.Credit = 1
			fc.Covered = true
		}
		out = append(out, fc)
	}
	return out
}

// CategoryScore is 100 × Σcredit / facet count, rounded to two decimals.
func CategoryScore(facets []specs.FacetCoverage) float64 {
	if len(facets) == 0 {
		return 0
	}
	var sum float64
	for _, f := range facets {
		sum += f.Credit
	}
	return round2(100 * sum / float64(len(facets)))
}

// Overall is the weighted mean of category scores.
func Overall(cats []specs.CategoryMaturity) float64 {
	return weightedMean(cats, func(c specs.CategoryMaturity) float64 { return c.Score })
}

// Readiness is the weighted mean of min(100, 100 × score / target). It
// reaches 100 only when every weighted category meets the target.
func Readiness(cats []specs.CategoryMaturity, target float64) float64 {
	if target <= 0 {
		return 100
	}
	return weightedMean(cats, func(c specs.CategoryMaturity) float64 {
		return math.Min(100, 100*c.Score/target)
	})
}

func weightedMean(cats []specs.CategoryMaturity, value func(specs.CategoryMaturity) float64) float64 {
	var total, sum float64
	for _, c := range cats {
		total += c.Weight
		sum += c.Weight * value(c)
	}
	if total == 0 {
		return 0
	}
	return round2(sum / total)
}

func groupByCategory(list []specs.Specification) map[specs.Category][]specs.Specification {
	out := make(map[specs.Category][]specs.Specification)
	for _, sp := range list {
		if sp.IsCurrent {
			out[sp.Category] = append(out[sp.Category], sp)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
