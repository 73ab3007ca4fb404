// Package config holds the tunable policy of the quality-gate engine:
// facet checklists, weights, thresholds, the cost model, phase guards,
// and the infrastructure settings needed to wire collaborators.
//
// Every number here is a default, not a law. Load overlays a YAML file
// onto Default(), then environment variables override infrastructure
// settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/HendryAvila/specgate/internal/specs"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFile is the filename looked up inside the data directory.
	ConfigFile = "specgate.yaml"
	// DatabaseFile is the SQLite database filename inside the data directory.
	DatabaseFile = "specgate.db"
)

// Facet is one required sub-topic of a category checklist.
type Facet struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// Guard is the entry condition of a phase, keyed by the target phase.
type Guard struct {
	MinOverall                  float64 `yaml:"min_overall" json:"min_overall"`
	CategoryTarget              float64 `yaml:"category_target" json:"category_target"`
	RequireAllAtTarget          bool    `yaml:"require_all_at_target" json:"require_all_at_target"`
	RequirePrioritization       bool    `yaml:"require_prioritization" json:"require_prioritization"`
	RequireNoArchitectureIssues bool    `yaml:"require_no_architecture_issues" json:"require_no_architecture_issues"`
}

// CostModel parameterizes the quality gate's two paths.
type CostModel struct {
	ProceedImmediateCost   float64                         `yaml:"proceed_immediate_cost"`
	ProceedBaseProbability float64                         `yaml:"proceed_base_probability"`
	ProceedProbabilityStep float64                         `yaml:"proceed_probability_step"`
	ProceedProbabilityCap  float64                         `yaml:"proceed_probability_cap"`
	ReworkCost             map[specs.OperationType]float64 `yaml:"rework_cost"`
	RemediatePerItemCost   float64                         `yaml:"remediate_per_item_cost"`
	RemediateProbability   float64                         `yaml:"remediate_probability"`
	RemediateTweakCost     float64                         `yaml:"remediate_tweak_cost"`
	RiskMargin             float64                         `yaml:"risk_margin"`
}

// LLMConfig selects the collaborator implementation.
type LLMConfig struct {
	Provider       string `yaml:"provider"` // heuristic | openai
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"-"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxAttempts    int    `yaml:"max_attempts"`
}

// Config is the full engine configuration.
type Config struct {
	DataDir  string    `yaml:"data_dir"`
	RedisURL string    `yaml:"redis_url"`
	LLM      LLMConfig `yaml:"llm"`

	FacetThreshold     float64 `yaml:"facet_threshold"`
	VaguenessThreshold float64 `yaml:"vagueness_threshold"`
	ConflictThreshold  float64 `yaml:"conflict_threshold"`
	DefaultTarget      float64 `yaml:"default_target"`

	CriticalCategories []specs.Category                           `yaml:"critical_categories"`
	Weights            map[specs.Category]float64                 `yaml:"weights"`
	Facets             map[specs.Category][]Facet                 `yaml:"facets"`
	PhaseFacets        map[specs.Phase]map[specs.Category][]Facet `yaml:"phase_facets"`
	LinkedCategories   map[specs.Category][]specs.Category        `yaml:"linked_categories"`
	ExclusiveTerms     [][]string                                 `yaml:"exclusive_terms"`
	Transitions        map[specs.Phase]Guard                      `yaml:"transitions"`
	Cost               CostModel                                  `yaml:"cost"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".specgate"),
		LLM: LLMConfig{
			Provider:       "heuristic",
			TimeoutSeconds: 60,
			MaxAttempts:    2,
		},
		FacetThreshold:     0.6,
		VaguenessThreshold: 0.5,
		ConflictThreshold:  0.7,
		DefaultTarget:      80,
		CriticalCategories: []specs.Category{
			specs.CategorySecurity,
			specs.CategoryTesting,
			specs.CategoryTechStack,
		},
		Weights:          map[specs.Category]float64{},
		Facets:           DefaultFacets(),
		PhaseFacets:      DefaultPhaseFacets(),
		LinkedCategories: map[specs.Category][]specs.Category{},
		ExclusiveTerms: [][]string{
			{"sql", "nosql"},
			{"monolith", "microservices"},
			{"on-prem", "cloud"},
			{"native", "web"},
			{"local", "international"},
			{"b2b", "b2c"},
		},
		Transitions: map[specs.Phase]Guard{
			specs.PhaseAnalysis: {
				MinOverall: 60,
			},
			specs.PhaseDesign: {
				CategoryTarget:        80,
				RequireAllAtTarget:    true,
				RequirePrioritization: true,
			},
			specs.PhaseImplementation: {
				RequireNoArchitectureIssues: true,
			},
		},
		Cost: CostModel{
			ProceedImmediateCost:   0,
			ProceedBaseProbability: 0.5,
			ProceedProbabilityStep: 0.2,
			ProceedProbabilityCap:  0.95,
			ReworkCost: map[specs.OperationType]float64{
				specs.OpSkipGaps:     16,
				specs.OpAdvancePhase: 24,
				specs.OpGenerateCode: 80,
			},
			RemediatePerItemCost: 0.5,
			RemediateProbability: 0.05,
			RemediateTweakCost:   2,
			RiskMargin:           2,
		},
	}
}

// Load reads the config file at path (if any) over the defaults and
// applies environment overrides. An empty path resolves to
// $SPECGATE_CONFIG, then <data_dir>/specgate.yaml. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.applyEnv()

	if path == "" {
		path = getenv("SPECGATE_CONFIG", filepath.Join(cfg.DataDir, ConfigFile))
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.overlay(data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		// Environment wins over the file for infrastructure settings.
		cfg.applyEnv()
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay decodes data over c. Transition guards are merged field by
// field, so a file naming one field of a guard keeps the others.
func (c *Config) overlay(data []byte) error {
	defaults := make(map[specs.Phase]Guard, len(c.Transitions))
	for phase, g := range c.Transitions {
		defaults[phase] = g
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}

	var raw struct {
		Transitions map[specs.Phase]yaml.Node `yaml:"transitions"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	for phase, node := range raw.Transitions {
		g := defaults[phase]
		if err := node.Decode(&g); err != nil {
			return fmt.Errorf("transitions.%s: %w", phase, err)
		}
		c.Transitions[phase] = g
	}
	return nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// DatabasePath returns the SQLite file location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFile)
}

func (c *Config) applyEnv() {
	c.DataDir = getenv("SPECGATE_DATA_DIR", c.DataDir)
	c.RedisURL = getenv("SPECGATE_REDIS_URL", c.RedisURL)
	c.LLM.Provider = getenv("SPECGATE_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getenv("SPECGATE_LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getenv("SPECGATE_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = getenv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.TimeoutSeconds = getenvInt("SPECGATE_LLM_TIMEOUT_SECONDS", c.LLM.TimeoutSeconds)
	c.LLM.MaxAttempts = getenvInt("SPECGATE_LLM_MAX_ATTEMPTS", c.LLM.MaxAttempts)
}

// Validate checks that thresholds and scores are within range.
func (c *Config) Validate() error {
	unit := map[string]float64{
		"facet_threshold":     c.FacetThreshold,
		"vagueness_threshold": c.VaguenessThreshold,
		"conflict_threshold":  c.ConflictThreshold,
	}
	for name, v := range unit {
		if v < 0 || v > 1 {
			return fmt.Errorf("config: %s %.2f is outside [0,1]", name, v)
		}
	}
	if c.DefaultTarget <= 0 || c.DefaultTarget > 100 {
		return fmt.Errorf("config: default_target %.1f is outside (0,100]", c.DefaultTarget)
	}
	if c.Cost.RiskMargin < 1 {
		return fmt.Errorf("config: risk_margin %.2f must be >= 1", c.Cost.RiskMargin)
	}
	if c.Cost.ProceedProbabilityCap < 0 || c.Cost.ProceedProbabilityCap > 1 {
		return fmt.Errorf("config: proceed_probability_cap %.2f is outside [0,1]", c.Cost.ProceedProbabilityCap)
	}
	for _, cat := range specs.Taxonomy {
		if len(c.Facets[cat]) == 0 {
			return fmt.Errorf("config: category %s has no facets", cat)
		}
	}
	for phase, g := range c.Transitions {
		if specs.PhaseIndex(phase) < 0 {
			return fmt.Errorf("config: transition guard for unknown phase %q", phase)
		}
		if g.CategoryTarget < 0 || g.CategoryTarget > 100 || g.MinOverall < 0 || g.MinOverall > 100 {
			return fmt.Errorf("config: transition guard for %s has a score outside [0,100]", phase)
		}
	}
	for _, cat := range c.CriticalCategories {
		if err := specs.ValidateCategory(cat); err != nil {
			return fmt.Errorf("config: critical_categories: %w", err)
		}
	}
	return nil
}

// Weight returns the scoring weight of a category (default 1).
func (c *Config) Weight(cat specs.Category) float64 {
	if w, ok := c.Weights[cat]; ok && w >= 0 {
		return w
	}
	return 1
}

// IsCritical reports whether gaps in cat can be critical.
func (c *Config) IsCritical(cat specs.Category) bool {
	for _, cc := range c.CriticalCategories {
		if cc == cat {
			return true
		}
	}
	return false
}

// Linked returns the categories whose current specifications are also
// compared against proposals in cat.
func (c *Config) Linked(cat specs.Category) []specs.Category {
	return c.LinkedCategories[cat]
}

// Guard returns the entry guard of the target phase.
func (c *Config) Guard(to specs.Phase) Guard {
	return c.Transitions[to]
}

// GateTarget is the completeness target used when evaluating op from phase.
func (c *Config) GateTarget(op specs.OperationType, from specs.Phase) float64 {
	if op == specs.OpAdvancePhase {
		if g := c.Guard(specs.NextPhase(from)); g.CategoryTarget > 0 {
			return g.CategoryTarget
		}
	}
	return c.DefaultTarget
}

// ReworkCost returns the path-proceed rework cost of an operation.
func (c *Config) ReworkCost(op specs.OperationType) float64 {
	return c.Cost.ReworkCost[op]
}

// Checklist returns the facet checklist active in phase. Phase overrides
// accumulate: a phase sees its own overrides and those of every earlier
// phase on top of the base checklist.
func (c *Config) Checklist(phase specs.Phase) map[specs.Category][]Facet {
	out := make(map[specs.Category][]Facet, len(c.Facets))
	for cat, facets := range c.Facets {
		out[cat] = facets
	}
	idx := specs.PhaseIndex(phase)
	for i := 0; i <= idx; i++ {
		for cat, facets := range c.PhaseFacets[specs.PhaseOrder[i]] {
			out[cat] = facets
		}
	}
	return out
}

// ChecklistChanged reports whether moving from one phase to another
// changes any category's facet list.
func (c *Config) ChecklistChanged(from, to specs.Phase) bool {
	a, b := c.Checklist(from), c.Checklist(to)
	for _, cat := range specs.Taxonomy {
		if !sameFacets(a[cat], b[cat]) {
			return true
		}
	}
	return false
}

func sameFacets(a, b []Facet) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
