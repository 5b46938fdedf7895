package schema

import (
	"reflect"
	"strings"
	"testing"
)

func TestLoadStrictRejectsUnknownFields(t *testing.T) {
	doc := `
id: t
start:
  url: https://example.com
actions:
  - type: goto
    target: https://example.com
    retries: 3
`
	_, err := Load(strings.NewReader(doc))
	if err == nil {
		t.Fatal("unknown field 'retries' should be rejected")
	}
}

// YAML and JSON serializations of a task are interchangeable.
func TestLoadFileYAMLAndJSONAgree(t *testing.T) {
	fromYAML, err := LoadFile("../../testdata/find-pricing.yaml")
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	fromJSON, err := LoadFile("../../testdata/find-pricing.json")
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if !reflect.DeepEqual(fromYAML, fromJSON) {
		t.Errorf("yaml and json parse differently:\n%+v\n%+v", fromYAML, fromJSON)
	}
	if fromYAML.ID != "find-pricing" || len(fromYAML.Actions) != 6 {
		t.Errorf("task = %+v", fromYAML)
	}
}

func TestEffectiveIDDefaultsToPositional(t *testing.T) {
	a := Action{Kind: ActionGoto}
	if got := a.EffectiveID(3); got != "a3" {
		t.Errorf("EffectiveID = %q, want a3", got)
	}
	a.ID = "open_home"
	if got := a.EffectiveID(3); got != "open_home" {
		t.Errorf("EffectiveID = %q, want explicit id", got)
	}
}

func TestSelectorLookup(t *testing.T) {
	task := &Task{
		Extract: &Extract{Selectors: []SelectorSpec{
			{Name: "pricing_link", Strategies: []string{"css:a"}},
		}},
	}
	if _, ok := task.Selector("pricing_link"); !ok {
		t.Error("catalogue entry not found")
	}
	if _, ok := task.Selector("other"); ok {
		t.Error("lookup of absent entry should fail")
	}

	var bare Task
	if _, ok := bare.Selector("x"); ok {
		t.Error("nil catalogue should report not found")
	}
}

func TestAccommodationDefaults(t *testing.T) {
	var a Accommodations
	if got := a.IdleNetworkMS(); got != DefaultIdleNetworkMS {
		t.Errorf("IdleNetworkMS = %d, want default %d", got, DefaultIdleNetworkMS)
	}
	a.WaitForIdleNetworkMS = 2500
	if got := a.IdleNetworkMS(); got != 2500 {
		t.Errorf("IdleNetworkMS = %d", got)
	}
}

func TestActionKindKnown(t *testing.T) {
	for _, k := range KnownActionKinds {
		if !k.Known() {
			t.Errorf("%q should be known", k)
		}
	}
	if ActionKind("hover").Known() {
		t.Error("hover should be unknown")
	}
}
