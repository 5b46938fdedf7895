// Package assertions evaluates assert-action conditions against live
// browser state.
package assertions

import (
	"fmt"
	"strings"
)

// Condition names accepted by the assert action.
const (
	URLIncludes  = "url_includes"
	TitleMatches = "title_matches"
)

// Result is the outcome of a single assertion.
type Result struct {
	Condition string `json:"condition"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
	Passed    bool   `json:"passed"`
	Message   string `json:"message"`
}

// Evaluate dispatches on the condition name. url and title are the live
// page's current values; callers pass both and the condition picks what it
// needs.
func Evaluate(condition, value, url, title string) *Result {
	switch condition {
	case URLIncludes:
		return EvalURLIncludes(url, value)
	case TitleMatches:
		return EvalTitleMatches(title, value)
	default:
		return &Result{
			Condition: condition,
			Expected:  value,
			Passed:    false,
			Message:   fmt.Sprintf("unknown assertion condition %q", condition),
		}
	}
}

// EvalURLIncludes checks that the current URL contains the expected
// substring, case-insensitively.
func EvalURLIncludes(url, expected string) *Result {
	passed := strings.Contains(strings.ToLower(url), strings.ToLower(expected))
	msg := fmt.Sprintf("URL contains %q", expected)
	if !passed {
		msg = fmt.Sprintf("URL does not contain '%s': %s", expected, url)
	}
	return &Result{
		Condition: URLIncludes,
		Expected:  expected,
		Actual:    truncate(url, 200),
		Passed:    passed,
		Message:   msg,
	}
}

// EvalTitleMatches checks that the page title contains the expected
// substring, case-insensitively. Despite the name this is a substring
// check, not a regex match.
func EvalTitleMatches(title, expected string) *Result {
	passed := strings.Contains(strings.ToLower(title), strings.ToLower(expected))
	msg := fmt.Sprintf("title contains %q", expected)
	if !passed {
		msg = fmt.Sprintf("Title does not contain '%s': %s", expected, title)
	}
	return &Result{
		Condition: TitleMatches,
		Expected:  expected,
		Actual:    truncate(title, 200),
		Passed:    passed,
		Message:   msg,
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
