// Package schema defines the Go struct types for the task document schema
// and provides strict YAML/JSON parsing.
package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ActionKind identifies one of the closed set of action types.
type ActionKind string

const (
	ActionGoto         ActionKind = "goto"
	ActionWaitFor      ActionKind = "wait_for"
	ActionFindAndClick ActionKind = "find_and_click"
	ActionAssert       ActionKind = "assert"
	ActionCapture      ActionKind = "capture"
	ActionExtract      ActionKind = "extract"
)

// KnownActionKinds lists every kind the dispatcher implements.
var KnownActionKinds = []ActionKind{
	ActionGoto, ActionWaitFor, ActionFindAndClick,
	ActionAssert, ActionCapture, ActionExtract,
}

// Known reports whether k is a recognized action kind.
func (k ActionKind) Known() bool {
	for _, known := range KnownActionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Task is the top-level document describing one browser run.
// Loaded once at run start and never mutated.
type Task struct {
	ID              string         `yaml:"id"                json:"id"                jsonschema:"required"`
	Start           Start          `yaml:"start"             json:"start"             jsonschema:"required"`
	Actions         []Action       `yaml:"actions"           json:"actions"           jsonschema:"required"`
	Extract         *Extract       `yaml:"extract,omitempty" json:"extract,omitempty"`
	Accommodations  Accommodations `yaml:"accommodations,omitempty"   json:"accommodations,omitempty"`
	SuccessCriteria []string       `yaml:"success_criteria,omitempty" json:"success_criteria,omitempty"`
}

// Start holds the starting point of the run.
type Start struct {
	URL string `yaml:"url" json:"url" jsonschema:"required"`
}

// Action is a single step in the ordered action list.
// Kind-specific parameters share one struct; validation enforces which
// fields each kind requires.
type Action struct {
	ID                  string     `yaml:"id,omitempty"        json:"id,omitempty"`
	Kind                ActionKind `yaml:"type"                json:"type" jsonschema:"required,enum=goto,enum=wait_for,enum=find_and_click,enum=assert,enum=capture,enum=extract"`
	Target              string     `yaml:"target,omitempty"    json:"target,omitempty"`
	TargetSelectorNames []string   `yaml:"target_selector_names,omitempty" json:"target_selector_names,omitempty"`
	Condition           string     `yaml:"condition,omitempty" json:"condition,omitempty"`
	Value               string     `yaml:"value,omitempty"     json:"value,omitempty"`
	What                []string   `yaml:"what,omitempty"      json:"what,omitempty"`
}

// EffectiveID returns the action's id, or the positional tag aN when absent.
func (a Action) EffectiveID(step int) string {
	if a.ID != "" {
		return a.ID
	}
	return fmt.Sprintf("a%d", step)
}

// Extract holds the selector catalogue available to find_and_click and
// extract actions.
type Extract struct {
	Selectors []SelectorSpec `yaml:"selectors,omitempty" json:"selectors,omitempty"`
}

// SelectorSpec is one named group of locator strategies, tried in order.
type SelectorSpec struct {
	Name       string   `yaml:"name"       json:"name"       jsonschema:"required"`
	Strategies []string `yaml:"strategies" json:"strategies" jsonschema:"required"`
}

// Selector looks up a catalogue entry by name.
func (t *Task) Selector(name string) (SelectorSpec, bool) {
	if t.Extract == nil {
		return SelectorSpec{}, false
	}
	for _, s := range t.Extract.Selectors {
		if s.Name == name {
			return s, true
		}
	}
	return SelectorSpec{}, false
}

// Accommodations are optional per-task tuning knobs.
type Accommodations struct {
	WaitForIdleNetworkMS int `yaml:"wait_for_idle_network_ms,omitempty" json:"wait_for_idle_network_ms,omitempty"`
}

// DefaultIdleNetworkMS is used when a task declares no idle-wait accommodation.
const DefaultIdleNetworkMS = 2000

// IdleNetworkMS returns the accommodation value, or the default.
func (a Accommodations) IdleNetworkMS() int {
	if a.WaitForIdleNetworkMS > 0 {
		return a.WaitForIdleNetworkMS
	}
	return DefaultIdleNetworkMS
}

// LoadFile reads and parses a task document. YAML and JSON serializations
// are interchangeable — JSON is a subset of YAML, so one strict decoder
// handles both.
func LoadFile(path string) (*Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open task: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a task document from an io.Reader with strict unknown-field
// rejection.
func Load(r io.Reader) (*Task, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var t Task
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}
