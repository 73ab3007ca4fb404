package config

import "github.com/HendryAvila/specgate/internal/specs"

// DefaultFacets returns the base checklist for every scored category.
// Keywords feed the rule-based facet classifier; LLM classifiers only
// need the names.
func DefaultFacets() map[specs.Category][]Facet {
	return map[specs.Category][]Facet{
		specs.CategoryGoals: {
			{Name: "primary_goal", Keywords: []string{"goal", "purpose", "mission", "objective", "sell", "help"}},
			{Name: "success_metrics", Keywords: []string{"metric", "kpi", "success", "measure", "revenue", "conversion"}},
			{Name: "target_market", Keywords: []string{"market", "audience", "customers", "region", "local", "international"}},
			{Name: "business_model", Keywords: []string{"business model", "pricing", "subscription", "commission", "monetiz"}},
			{Name: "constraints", Keywords: []string{"constraint", "budget", "deadline", "timeline", "limit"}},
		},
		specs.CategoryRequirements: {
			{Name: "core_features", Keywords: []string{"feature", "must", "catalog", "checkout", "cart", "search"}},
			{Name: "user_flows", Keywords: []string{"flow", "journey", "workflow", "onboarding", "step"}},
			{Name: "acceptance_criteria", Keywords: []string{"acceptance", "criteria", "given", "done when"}},
			{Name: "non_functional", Keywords: []string{"non-functional", "availability", "usability", "reliability"}},
			{Name: "out_of_scope", Keywords: []string{"out of scope", "not include", "won't", "exclude", "non-goal"}},
		},
		specs.CategoryTechStack: {
			{Name: "language", Keywords: []string{"language", "go", "python", "typescript", "java", "rust"}},
			{Name: "framework", Keywords: []string{"framework", "react", "django", "rails", "next", "spring"}},
			{Name: "database", Keywords: []string{"database", "db", "postgres", "mysql", "sqlite", "mongo", "sql"}},
			{Name: "hosting", Keywords: []string{"hosting", "cloud", "aws", "gcp", "azure", "vercel", "on-prem"}},
			{Name: "integrations", Keywords: []string{"integration", "api", "stripe", "payment", "webhook", "third-party"}},
		},
		specs.CategorySecurity: {
			{Name: "authentication", Keywords: []string{"auth_method", "authentication", "login", "password", "sso", "oauth", "mfa", "2fa"}},
			{Name: "authorization", Keywords: []string{"authorization", "rbac", "role", "permission", "access control"}},
			{Name: "encryption_in_transit", Keywords: []string{"tls", "https", "in transit", "ssl"}},
			{Name: "encryption_at_rest", Keywords: []string{"at rest", "encrypted storage", "kms", "disk encryption"}},
			{Name: "api_hardening", Keywords: []string{"rate limit", "csrf", "cors", "input validation", "waf", "hardening"}},
		},
		specs.CategoryTesting: {
			{Name: "unit_tests", Keywords: []string{"unit"}},
			{Name: "integration_tests", Keywords: []string{"integration test", "integration"}},
			{Name: "e2e_tests", Keywords: []string{"e2e", "end-to-end", "end to end", "playwright", "cypress"}},
			{Name: "coverage_target", Keywords: []string{"coverage", "percent", "%"}},
			{Name: "test_data", Keywords: []string{"fixture", "test data", "seed", "mock"}},
		},
		specs.CategoryMonitoring: {
			{Name: "logging", Keywords: []string{"log", "logging"}},
			{Name: "metrics", Keywords: []string{"metric", "prometheus", "dashboard", "grafana"}},
			{Name: "alerting", Keywords: []string{"alert", "pager", "on-call", "notify"}},
			{Name: "tracing", Keywords: []string{"trace", "tracing", "opentelemetry", "span"}},
		},
		specs.CategoryDeployment: {
			{Name: "environments", Keywords: []string{"environment", "staging", "production", "dev"}},
			{Name: "ci_cd", Keywords: []string{"ci", "cd", "pipeline", "github actions", "deploy"}},
			{Name: "release_strategy", Keywords: []string{"release", "blue-green", "canary", "rollback", "rollout"}},
			{Name: "infrastructure", Keywords: []string{"infrastructure", "terraform", "kubernetes", "docker", "container"}},
		},
		specs.CategoryDocumentation: {
			{Name: "user_docs", Keywords: []string{"user guide", "help", "manual", "user doc"}},
			{Name: "api_docs", Keywords: []string{"api doc", "openapi", "swagger", "reference"}},
			{Name: "runbooks", Keywords: []string{"runbook", "playbook", "operations", "ops"}},
		},
		specs.CategoryDisasterRecovery: {
			{Name: "backups", Keywords: []string{"backup", "snapshot"}},
			{Name: "rpo_rto", Keywords: []string{"rpo", "rto", "recovery point", "recovery time"}},
			{Name: "failover", Keywords: []string{"failover", "replica", "multi-region", "standby"}},
		},
		specs.CategoryUserSegments: {
			{Name: "personas", Keywords: []string{"persona", "artisan", "buyer", "seller", "user type", "segment"}},
			{Name: "roles", Keywords: []string{"role", "admin", "moderator", "permission"}},
			{Name: "accessibility", Keywords: []string{"accessibility", "a11y", "wcag", "screen reader"}},
		},
		specs.CategoryPerformance: {
			{Name: "latency", Keywords: []string{"latency", "response time", "ms", "p95", "p99"}},
			{Name: "throughput", Keywords: []string{"throughput", "rps", "requests per", "qps"}},
			{Name: "load_profile", Keywords: []string{"load", "peak", "concurrent", "traffic"}},
		},
		specs.CategoryScalability: {
			{Name: "growth_projection", Keywords: []string{"growth", "users by", "projection", "year"}},
			{Name: "scaling_strategy", Keywords: []string{"horizontal", "vertical", "autoscal", "shard", "scale"}},
			{Name: "data_volume", Keywords: []string{"volume", "gb", "tb", "records", "rows"}},
		},
	}
}

// DefaultPhaseFacets returns checklist overrides that apply from a phase
// onwards. Design adds a threat model to the security checklist.
func DefaultPhaseFacets() map[specs.Phase]map[specs.Category][]Facet {
	security := DefaultFacets()[specs.CategorySecurity]
	withThreatModel := append(append([]Facet{}, security...),
		Facet{Name: "threat_model", Keywords: []string{"threat", "stride", "attack surface", "risk assessment"}},
	)
	return map[specs.Phase]map[specs.Category][]Facet{
		specs.PhaseDesign: {
			specs.CategorySecurity: withThreatModel,
		},
	}
}
