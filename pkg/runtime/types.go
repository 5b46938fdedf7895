// Package runtime drives task execution: it owns the configuration surface,
// the per-action dispatcher, and the run state machine that sequences the
// browser session, selector resolution, and evidence recording.
package runtime

import (
	"errors"

	"github.com/evidenceworks/webproof/pkg/schema"
	"github.com/evidenceworks/webproof/pkg/selector"
)

// ErrUnknownAction is returned (wrapped, with the offending kind) when the
// dispatcher meets an action type it does not implement. Unknown kinds are
// a hard per-action failure, never a silent no-op.
var ErrUnknownAction = errors.New("unknown action type")

// ActionResult is the structured outcome of one dispatched action.
type ActionResult struct {
	ID      string            `json:"action_id"`
	Kind    schema.ActionKind `json:"type"`
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`

	// Kind-specific payload.
	URL       string             `json:"url,omitempty"`       // goto
	Strategy  *selector.Strategy `json:"selector,omitempty"`  // find_and_click
	Extracted map[string]any     `json:"extracted,omitempty"` // extract
	Artifacts map[string]string  `json:"artifacts,omitempty"` // capture, what → path
}

// CriterionResult reports one success-criterion check for the run summary.
type CriterionResult struct {
	Criterion string `json:"criterion"`
	Met       bool   `json:"met"`
}

// RunReport summarizes a completed run for callers (CLI, MCP tools).
type RunReport struct {
	SessionDir string            `json:"session_dir"`
	Success    bool              `json:"success"`
	Fatal      string            `json:"fatal_error,omitempty"`
	FinalURL   string            `json:"final_url,omitempty"`
	FinalTitle string            `json:"final_title,omitempty"`
	Results    []ActionResult    `json:"results"`
	Criteria   []CriterionResult `json:"criteria,omitempty"`
}
