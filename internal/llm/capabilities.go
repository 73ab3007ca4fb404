package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/HendryAvila/specgate/internal/collab"
	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/specs"
)

// Completer is a chat model that answers with a JSON object.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Capabilities implements collab.Capabilities by prompting a model for
// structured JSON.
type Capabilities struct {
	model Completer
}

var _ collab.Capabilities = (*Capabilities)(nil)

// New wraps a Completer.
func New(model Completer) *Capabilities {
	return &Capabilities{model: model}
}

const extractSystem = `You extract software project specifications from a user's answer.
Allowed categories: %s.
Reply with a JSON object {"specifications":[{"category":"...","key":"snake_case_key","value":"...","confidence":0.0}]}.
Only include facts the user stated. confidence is how certain the statement is, from 0 to 1.`

const checkSystem = `You decide whether a proposed specification contradicts existing ones.
A refinement or added detail is not a contradiction.
Reply with a JSON object {"is_conflict":bool,"conflict_type":"SCOPE|REQUIREMENTS|TECHNOLOGY|ARCHITECTURE|OTHER","explanation":"...","confidence":0.0,"existing_id":"id of the contradicted specification"}.`

const classifySystem = `You judge how well a set of specifications covers each facet of the %s category.
Reply with a JSON object {"coverage":{"facet_name":0.0}} with one entry per facet, each from 0 (not addressed) to 1 (fully specified).`

type specView struct {
	ID       string `json:"id,omitempty"`
	Category string `json:"category"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

func viewOf(list []specs.Specification) []specView {
	out := make([]specView, 0, len(list))
	for _, sp := range list {
		out = append(out, specView{ID: sp.ID, Category: string(sp.Category), Key: sp.Key, Value: sp.Value})
	}
	return out
}

// ─── Extract ─────────────────────────────────────────────────────────────────

type extractReply struct {
	Specifications []struct {
		Category   string  `json:"category"`
		Key        string  `json:"key"`
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"specifications"`
}

// Extract implements collab.Extractor. Items the model returns that fail
// validation are dropped.
func (c *Capabilities) Extract(ctx context.Context, raw string, pc collab.ProjectContext) ([]specs.Proposal, error) {
	categories := make([]string, 0, len(specs.Taxonomy)+1)
	for _, cat := range specs.Taxonomy {
		categories = append(categories, string(cat))
	}
	categories = append(categories, string(specs.CategoryPrioritization))

	known, err := json.Marshal(viewOf(pc.Current))
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Project phase: %s\nKnown specifications: %s\n\nAnswer:\n%s", pc.Phase, known, raw)

	var reply extractReply
	if err := c.ask(ctx, fmt.Sprintf(extractSystem, strings.Join(categories, ", ")), prompt, &reply); err != nil {
		return nil, err
	}

	out := []specs.Proposal{}
	for _, s := range reply.Specifications {
		p := specs.Proposal{
			ProjectID:  pc.ProjectID,
			Category:   specs.Category(s.Category),
			Key:        s.Key,
			Value:      s.Value,
			Confidence: clamp01(s.Confidence),
			Source:     specs.SourceChat,
		}.Normalize()
		if p.Validate() == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// ─── Check ───────────────────────────────────────────────────────────────────

type checkReply struct {
	IsConflict   bool    `json:"is_conflict"`
	ConflictType string  `json:"conflict_type"`
	Explanation  string  `json:"explanation"`
	Confidence   float64 `json:"confidence"`
	ExistingID   string  `json:"existing_id"`
}

// Check implements collab.ContradictionChecker.
func (c *Capabilities) Check(ctx context.Context, q collab.ContradictionQuery) (collab.Verdict, error) {
	existing, err := json.Marshal(viewOf(q.Existing))
	if err != nil {
		return collab.Verdict{}, err
	}
	proposed, err := json.Marshal(specView{Category: string(q.Proposal.Category), Key: q.Proposal.Key, Value: q.Proposal.Value})
	if err != nil {
		return collab.Verdict{}, err
	}
	prompt := fmt.Sprintf("Category: %s\nExisting specifications: %s\nProposed specification: %s",
		q.CategoryContext, existing, proposed)

	var reply checkReply
	if err := c.ask(ctx, checkSystem, prompt, &reply); err != nil {
		return collab.Verdict{}, err
	}
	v := collab.Verdict{
		IsConflict:  reply.IsConflict,
		Explanation: reply.Explanation,
		Confidence:  clamp01(reply.Confidence),
		ExistingID:  reply.ExistingID,
	}
	if v.IsConflict && reply.ConflictType != "" {
		v.ConflictType = specs.ParseConflictType(reply.ConflictType)
	}
	return v, nil
}

// ─── Classify ────────────────────────────────────────────────────────────────

type classifyReply struct {
	Coverage map[string]float64 `json:"coverage"`
}

// Classify implements collab.FacetClassifier. Facets the model did not
// mention count as uncovered; unknown facet names are ignored.
func (c *Capabilities) Classify(ctx context.Context, cat specs.Category, facets []config.Facet, current []specs.Specification) (map[string]float64, error) {
	names := make([]string, 0, len(facets))
	for _, f := range facets {
		names = append(names, f.Name)
	}
	list, err := json.Marshal(viewOf(current))
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Facets: %s\nSpecifications: %s", strings.Join(names, ", "), list)

	var reply classifyReply
	if err := c.ask(ctx, fmt.Sprintf(classifySystem, cat), prompt, &reply); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(facets))
	for _, name := range names {
		out[name] = clamp01(reply.Coverage[name])
	}
	return out, nil
}

// ask completes and decodes the reply into dst.
func (c *Capabilities) ask(ctx context.Context, system, prompt string, dst any) error {
	text, err := c.model.Complete(ctx, system, prompt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFence(text)), dst); err != nil {
		return fmt.Errorf("model reply is not the expected JSON: %w", err)
	}
	return nil
}

// stripFence removes a ```json fence some models wrap replies in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
