// Package gaps turns a maturity report into prioritized gap reports.
//
// The analyzer does no language judgement of its own. Facet coverage comes
// from the classifier via the maturity report, and vagueness is the
// confidence the extractor attached to each specification.
package gaps

import (
	"sort"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/specs"
)

// Analyzer derives GapReports.
type Analyzer struct {
	cfg *config.Config
}

// New creates an Analyzer.
func New(cfg *config.Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze returns one GapReport per scored category whose completeness is
// below target, ordered by priority and then taxonomy order. A target of 0
// uses the configured default.
func (a *Analyzer) Analyze(report *specs.MaturityReport, current []specs.Specification, target float64) []specs.GapReport {
	if target <= 0 {
		target = a.cfg.DefaultTarget
	}

	var out []specs.GapReport
	for _, cm := range report.Categories {
		if !cm.Category.IsScored() || cm.Score >= target {
			continue
		}
		out = append(out, specs.GapReport{
			ProjectID:    report.ProjectID,
			Category:     cm.Category,
			Completeness: cm.Score,
			Target:       target,
			MissingItems: missing(cm.Facets),
			VagueItems:   a.vague(cm.Category, current),
			Priority:     a.Priority(cm.Category, cm.Score),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if pi != pj {
			return pi < pj
		}
		return specs.TaxonomyIndex(out[i].Category) < specs.TaxonomyIndex(out[j].Category)
	})
	return out
}

// Priority grades a below-target category.
func (a *Analyzer) Priority(cat specs.Category, completeness float64) specs.Priority {
	switch {
	case a.cfg.IsCritical(cat) && completeness < 50:
		return specs.PriorityCritical
	case completeness < 70:
		return specs.PriorityHigh
	default:
		return specs.PriorityMedium
	}
}

// CountCritical returns the number of critical-priority gap reports.
func CountCritical(reports []specs.GapReport) int {
	n := 0
	for _, r := range reports {
		if r.Priority == specs.PriorityCritical {
			n++
		}
	}
	return n
}

func missing(facets []specs.FacetCoverage) []string {
	out := []string{}
	for _, f := range facets {
		if !f.Covered {
			out = append(out, f.Facet)
		}
	}
	return out
}

func (a *Analyzer) vague(cat specs.Category, current []specs.Specification) []string {
	out := []string{}
	for _, sp := range current {
		if sp.IsCurrent && sp.Category == cat && sp.Confidence < a.cfg.VaguenessThreshold {
			out = append(out, sp.ID)
		}
	}
	return out
}
