package schema

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/evidenceworks/webproof/pkg/selector"
)

// ValidationError represents a single validation error with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // JSON-path-like location (e.g., "actions[2]")
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// ValidateFile performs the full 3-phase validation pipeline on a task file.
// Phase 1: Structural (strict YAML/JSON decode)
// Phase 2: Semantic (JSON Schema validation)
// Phase 3: Domain (custom Go rules)
func ValidateFile(path string) (*Task, []*ValidationError) {
	var allErrors []*ValidationError

	t, err := LoadFile(path)
	if err != nil {
		allErrors = append(allErrors, &ValidationError{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		})
		return nil, allErrors
	}

	allErrors = append(allErrors, validateSemantic(t)...)
	allErrors = append(allErrors, ValidateDomain(t)...)

	if len(allErrors) > 0 {
		return t, allErrors
	}
	return t, nil
}

// validateSemantic validates the task against the generated JSON Schema.
func validateSemantic(t *Task) []*ValidationError {
	data, err := json.Marshal(t)
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("marshal for schema validation: %v", err),
			Severity: "error",
		}}
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("generate schema: %v", err),
			Severity: "error",
		}}
	}

	var schemaDoc interface{}
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("unmarshal schema: %v", err),
			Severity: "error",
		}}
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("task-v0.json", schemaDoc); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("add schema resource: %v", err),
			Severity: "error",
		}}
	}
	sch, err := c.Compile("task-v0.json")
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("compile schema: %v", err),
			Severity: "error",
		}}
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("unmarshal document: %v", err),
			Severity: "error",
		}}
	}

	if err := sch.Validate(doc); err != nil {
		var errs []*ValidationError
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			for _, cause := range flattenValidationErrors(ve) {
				errs = append(errs, &ValidationError{
					Phase:    "semantic",
					Path:     strings.Join(cause.InstanceLocation, "/"),
					Message:  fmt.Sprintf("%v", cause.ErrorKind),
					Severity: "error",
				})
			}
		} else {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Message:  err.Error(),
				Severity: "error",
			})
		}
		return errs
	}
	return nil
}

// strategyHint renders the standard fallback chain for an undeclared
// selector name, with underscores read as word separators.
func strategyHint(name string) string {
	text := strings.ReplaceAll(name, "_", " ")
	chain := selector.DefaultStrategies(text)
	parts := make([]string, len(chain))
	for i, s := range chain {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// ValidateDomain applies rules the schema cannot express: action kind
// membership, selector catalogue references, id uniqueness, URL shape.
func ValidateDomain(t *Task) []*ValidationError {
	var errs []*ValidationError

	addErr := func(path, msg string) {
		errs = append(errs, &ValidationError{Phase: "domain", Path: path, Message: msg, Severity: "error"})
	}
	addWarn := func(path, msg string) {
		errs = append(errs, &ValidationError{Phase: "domain", Path: path, Message: msg, Severity: "warning"})
	}

	if t.ID == "" {
		addErr("id", "task id is required")
	}
	if t.Start.URL == "" {
		addErr("start.url", "start URL is required")
	} else if u, err := url.Parse(t.Start.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		addErr("start.url", fmt.Sprintf("start URL %q must be absolute http(s)", t.Start.URL))
	}
	if len(t.Actions) == 0 {
		addErr("actions", "at least one action is required")
	}

	seen := make(map[string]int)
	for i, a := range t.Actions {
		path := fmt.Sprintf("actions[%d]", i)

		if !a.Kind.Known() {
			addErr(path, fmt.Sprintf("unknown action kind %q", a.Kind))
		}
		if a.ID != "" {
			if prev, dup := seen[a.ID]; dup {
				addErr(path, fmt.Sprintf("duplicate action id %q (also at actions[%d])", a.ID, prev))
			}
			seen[a.ID] = i
		}

		switch a.Kind {
		case ActionGoto:
			if a.Target == "" {
				addErr(path, "goto requires a target URL")
			}
		case ActionFindAndClick:
			if len(a.TargetSelectorNames) == 0 {
				addErr(path, "find_and_click requires target_selector_names")
				continue
			}
			if len(a.TargetSelectorNames) > 1 {
				addWarn(path, "only the first target selector name is honored")
			}
			if _, ok := t.Selector(a.TargetSelectorNames[0]); !ok {
				name := a.TargetSelectorNames[0]
				addErr(path, fmt.Sprintf("selector %q not found in extract.selectors", name))
				addWarn(path, fmt.Sprintf("declare %q with a fallback chain, e.g. %s",
					name, strategyHint(name)))
			}
		case ActionAssert:
			if a.Condition == "" {
				addErr(path, "assert requires a condition")
			}
		case ActionCapture, ActionExtract:
			if len(a.What) == 0 {
				addErr(path, fmt.Sprintf("%s requires a non-empty what list", a.Kind))
			}
		}
	}

	if t.Extract != nil {
		for i, s := range t.Extract.Selectors {
			path := fmt.Sprintf("extract.selectors[%d]", i)
			if s.Name == "" {
				addErr(path, "selector name is required")
			}
			if len(s.Strategies) == 0 {
				addErr(path, fmt.Sprintf("selector %q has no strategies", s.Name))
			}
		}
	}

	return errs
}
