package schema

import (
	"strings"
	"testing"
)

func hasError(errs []*ValidationError, phase, fragment string) bool {
	for _, e := range errs {
		if e.Severity == "error" && e.Phase == phase && strings.Contains(e.Message, fragment) {
			return true
		}
	}
	return false
}

func TestValidateFileAcceptsExample(t *testing.T) {
	task, errs := ValidateFile("../../testdata/find-pricing.yaml")
	for _, e := range errs {
		if e.Severity == "error" {
			t.Errorf("unexpected error: %v", e)
		}
	}
	if task == nil {
		t.Fatal("task is nil")
	}
	// The multi-name warning must not fire for single-name actions.
	for _, e := range errs {
		if e.Severity == "warning" {
			t.Errorf("unexpected warning: %v", e)
		}
	}
}

func TestValidateFileRejectsUnknownKind(t *testing.T) {
	_, errs := ValidateFile("../../testdata/invalid-unknown-kind.yaml")
	if !hasError(errs, "domain", "unknown action kind") {
		t.Errorf("errors = %v", errs)
	}
}

func TestValidateFileRejectsDanglingSelector(t *testing.T) {
	_, errs := ValidateFile("../../testdata/invalid-missing-selector.yaml")
	if !hasError(errs, "domain", "not found in extract.selectors") {
		t.Errorf("errors = %v", errs)
	}

	// The error comes with a hint suggesting the default fallback chain.
	hinted := false
	for _, e := range errs {
		if e.Severity == "warning" && strings.Contains(e.Message, "fallback chain") {
			hinted = true
			if !strings.Contains(e.Message, "aria: not in catalogue") {
				t.Errorf("hint should open with the aria strategy: %s", e.Message)
			}
		}
	}
	if !hinted {
		t.Errorf("no fallback-chain hint in %v", errs)
	}
}

func TestValidateDomainRules(t *testing.T) {
	task := &Task{
		ID:    "",
		Start: Start{URL: "ftp://example.com"},
		Actions: []Action{
			{ID: "x", Kind: ActionGoto},
			{ID: "x", Kind: ActionAssert},
			{Kind: ActionCapture},
		},
	}
	errs := ValidateDomain(task)

	for _, fragment := range []string{
		"task id is required",
		"must be absolute http(s)",
		"goto requires a target URL",
		"duplicate action id",
		"assert requires a condition",
		"non-empty what list",
	} {
		if !hasError(errs, "domain", fragment) {
			t.Errorf("missing error %q in %v", fragment, errs)
		}
	}
}

func TestValidateDomainWarnsMultiName(t *testing.T) {
	task := &Task{
		ID:    "t",
		Start: Start{URL: "https://example.com"},
		Actions: []Action{
			{Kind: ActionFindAndClick, TargetSelectorNames: []string{"a", "b"}},
		},
		Extract: &Extract{Selectors: []SelectorSpec{{Name: "a", Strategies: []string{"css:#a"}}}},
	}
	errs := ValidateDomain(task)

	warned := false
	for _, e := range errs {
		if e.Severity == "warning" && strings.Contains(e.Message, "first target selector name") {
			warned = true
		}
		if e.Severity == "error" {
			t.Errorf("unexpected error: %v", e)
		}
	}
	if !warned {
		t.Error("multi-name hint should warn")
	}
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, fragment := range []string{
		"task-v0.json",
		"find_and_click",
		"wait_for_idle_network_ms",
	} {
		if !strings.Contains(s, fragment) {
			t.Errorf("schema missing %q", fragment)
		}
	}
}
