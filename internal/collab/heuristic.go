package collab

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/specs"
)

const (
	// Same-key values sharing less than this token overlap contradict.
	divergenceThreshold = 0.3
	// Confidence of a judgement based on mutually exclusive terms.
	exclusiveConfidence = 0.8
	// Confidence assigned to extracted lines without an explicit one.
	defaultExtractConfidence = 0.8
)

// Heuristic is the rule-based implementation of Capabilities. It matches
// facet keywords, compares token overlap for same-key values, and knows
// configured pairs of mutually exclusive terms.
type Heuristic struct {
	cfg *config.Config
}

// NewHeuristic creates a Heuristic collaborator.
func NewHeuristic(cfg *config.Config) *Heuristic {
	return &Heuristic{cfg: cfg}
}

// ─── classify_facets ─────────────────────────────────────────────────────────

// Classify reports, per facet, the highest confidence among specifications
// whose key or value mentions the facet.
func (h *Heuristic) Classify(_ context.Context, _ specs.Category, facets []config.Facet, current []specs.Specification) (map[string]float64, error) {
	out := make(map[string]float64, len(facets))
	for _, f := range facets {
		for _, sp := range current {
			if !mentionsFacet(f, sp) {
				continue
			}
			if sp.Confidence > out[f.Name] {
				out[f.Name] = sp.Confidence
			}
		}
	}
	return out, nil
}

func mentionsFacet(f config.Facet, sp specs.Specification) bool {
	if sp.Key == f.Name {
		return true
	}
	text := strings.ToLower(sp.Key + " " + strings.ReplaceAll(sp.Key, "_", " ") + " " + sp.Value)
	words := tokens(text)
	for _, kw := range f.Keywords {
		if matchKeyword(strings.ToLower(kw), text, words) {
			return true
		}
	}
	return false
}

// matchKeyword matches phrases and symbols as substrings, long words as
// token prefixes ("monetiz" matches "monetization"), and short words only
// as whole tokens so "go" does not match "good".
func matchKeyword(kw, text string, words []string) bool {
	if kw == "" {
		return false
	}
	if strings.IndexFunc(kw, func(r rune) bool { return !isWordRune(r) }) >= 0 {
		return strings.Contains(text, kw)
	}
	for _, w := range words {
		if w == kw || (len(kw) >= 5 && strings.HasPrefix(w, kw)) {
			return true
		}
	}
	return false
}

// ─── check_contradiction ─────────────────────────────────────────────────────

// Check compares the proposal against each existing specification in order
// and reports the first contradiction it finds.
func (h *Heuristic) Check(_ context.Context, q ContradictionQuery) (Verdict, error) {
	p := q.Proposal
	proposed := tokenSet(p.Value)

	for _, e := range q.Existing {
		if e.Category == p.Category && e.Key == p.Key {
			if strings.EqualFold(strings.TrimSpace(e.Value), strings.TrimSpace(p.Value)) {
				continue
			}
			sim := jaccard(proposed, tokenSet(e.Value))
			if sim < divergenceThreshold {
				return Verdict{
					IsConflict:   true,
					ConflictType: TypeFor(p.Category),
					Explanation: fmt.Sprintf("%s/%s: proposed %q replaces current %q with little in common",
						p.Category, p.Key, p.Value, e.Value),
					Confidence: 0.7 + 0.25*(1-sim),
					ExistingID: e.ID,
				}, nil
			}
		}

		if a, b, ok := h.exclusive(proposed, tokenSet(e.Value)); ok {
			return Verdict{
				IsConflict:   true,
				ConflictType: TypeFor(p.Category),
				Explanation: fmt.Sprintf("%s/%s says %q but %s/%s says %q",
					p.Category, p.Key, a, e.Category, e.Key, b),
				Confidence: exclusiveConfidence,
				ExistingID: e.ID,
			}, nil
		}
	}
	return Verdict{ConflictType: specs.ConflictOther}, nil
}

// exclusive finds a configured pair with one term on each side.
func (h *Heuristic) exclusive(proposed, existing map[string]bool) (string, string, bool) {
	for _, pair := range h.cfg.ExclusiveTerms {
		for i, a := range pair {
			if !proposed[a] {
				continue
			}
			for j, b := range pair {
				if i != j && existing[b] && !existing[a] {
					return a, b, true
				}
			}
		}
	}
	return "", "", false
}

// TypeFor maps a category to the conflict type used when a checker gives
// no better classification.
func TypeFor(cat specs.Category) specs.ConflictType {
	switch cat {
	case specs.CategoryGoals, specs.CategoryUserSegments, specs.CategoryPrioritization:
		return specs.ConflictScope
	case specs.CategoryRequirements:
		return specs.ConflictRequirements
	case specs.CategoryTechStack:
		return specs.ConflictTechnology
	case specs.CategoryDeployment, specs.CategoryPerformance, specs.CategoryScalability, specs.CategoryDisasterRecovery:
		return specs.ConflictArchitecture
	default:
		return specs.ConflictOther
	}
}

// ─── extract ─────────────────────────────────────────────────────────────────

// Extract reads one proposal per line in the form
//
//	category/key: value (0.9)
//
// The trailing confidence is optional. Lines without a category/key prefix
// are ignored.
func (h *Heuristic) Extract(_ context.Context, raw string, pc ProjectContext) ([]specs.Proposal, error) {
	var out []specs.Proposal
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*"))
		head, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		cat, key, ok := strings.Cut(strings.TrimSpace(head), "/")
		if !ok || strings.ContainsAny(cat, " \t") {
			continue
		}
		value, confidence := splitConfidence(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		out = append(out, specs.Proposal{
			ProjectID:  pc.ProjectID,
			Category:   specs.Category(cat),
			Key:        key,
			Value:      value,
			Confidence: confidence,
			Source:     specs.SourceChat,
		}.Normalize())
	}
	return out, nil
}

func splitConfidence(value string) (string, float64) {
	if !strings.HasSuffix(value, ")") {
		return value, defaultExtractConfidence
	}
	open := strings.LastIndex(value, "(")
	if open < 0 {
		return value, defaultExtractConfidence
	}
	c, err := strconv.ParseFloat(strings.TrimSpace(value[open+1:len(value)-1]), 64)
	if err != nil || c < 0 || c > 1 {
		return value, defaultExtractConfidence
	}
	return strings.TrimSpace(value[:open]), c
}

// ─── Tokens ──────────────────────────────────────────────────────────────────

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// tokens splits lowercase text into words. Hyphens stay inside words so
// "on-prem" is one token.
func tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r) && r != '-'
	})
}

func tokenSet(text string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range tokens(text) {
		out[t] = true
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
