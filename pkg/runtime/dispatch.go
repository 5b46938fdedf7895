package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evidenceworks/webproof/pkg/assertions"
	"github.com/evidenceworks/webproof/pkg/browser"
	"github.com/evidenceworks/webproof/pkg/evidence"
	"github.com/evidenceworks/webproof/pkg/schema"
	"github.com/evidenceworks/webproof/pkg/selector"
)

// startURLPlaceholder in a goto target resolves to the task's starting URL.
const startURLPlaceholder = "${start.url}"

// Dispatcher executes one action at a time against a live browser session,
// pushing reasoning entries and selector trails into the recorder as it
// goes. It holds no mutable run state of its own — each Execute call
// produces a fresh ActionResult.
type Dispatcher struct {
	task    *schema.Task
	session browser.Session
	rec     *evidence.Recorder
	timeout time.Duration // browser operation timeout, lower bound for waits
}

// NewDispatcher wires a dispatcher to a task, an open browser session, and
// the session's recorder.
func NewDispatcher(task *schema.Task, session browser.Session, rec *evidence.Recorder, timeout time.Duration) *Dispatcher {
	return &Dispatcher{task: task, session: session, rec: rec, timeout: timeout}
}

// Execute runs a single action and returns its result. A panic inside any
// branch is caught here, recorded as a failed reasoning entry, and turned
// into an error on the result — one broken action never aborts the run.
func (d *Dispatcher) Execute(ctx context.Context, step int, a schema.Action) (res ActionResult) {
	res = ActionResult{ID: a.EffectiveID(step), Kind: a.Kind}

	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Error = fmt.Sprintf("panic: %v", r)
			d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Error: %v", r), evidence.ResultFailed)
		}
	}()

	switch a.Kind {
	case schema.ActionGoto:
		d.execGoto(ctx, step, a, &res)
	case schema.ActionWaitFor:
		d.execWaitFor(ctx, step, a, &res)
	case schema.ActionFindAndClick:
		d.execFindAndClick(ctx, step, a, &res)
	case schema.ActionAssert:
		d.execAssert(ctx, step, a, &res)
	case schema.ActionCapture:
		d.execCapture(ctx, step, a, &res)
	case schema.ActionExtract:
		d.execExtract(ctx, step, a, &res)
	default:
		err := fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
		res.Error = err.Error()
		d.rec.RecordReasoning(step, string(a.Kind), err.Error(), evidence.ResultFailed)
	}
	return res
}

func (d *Dispatcher) execGoto(ctx context.Context, step int, a schema.Action, res *ActionResult) {
	url := a.Target
	if strings.Contains(url, startURLPlaceholder) {
		url = d.task.Start.URL
	}

	d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Navigating to %s", url), evidence.ResultStarting)
	if err := d.session.Navigate(ctx, url); err != nil {
		res.Error = err.Error()
		d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Error: %v", err), evidence.ResultFailed)
		return
	}
	if current, err := d.session.URL(ctx); err == nil {
		res.URL = current
	}
	res.Success = true
	d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Navigated to %s", url), evidence.ResultSuccess)
}

func (d *Dispatcher) execWaitFor(ctx context.Context, step int, a schema.Action, res *ActionResult) {
	condition := a.Condition
	if condition == "" {
		condition = "network_idle"
	}
	if condition != "network_idle" {
		res.Error = fmt.Sprintf("unsupported wait_for condition %q", condition)
		d.rec.RecordReasoning(step, string(a.Kind), res.Error, evidence.ResultFailed)
		return
	}

	idleMS := d.task.Accommodations.IdleNetworkMS()
	d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Waiting for network idle (%dms)", idleMS), evidence.ResultStarting)

	// A short idle target must not truncate a wait the operation timeout
	// would allow, so the effective bound is whichever is longer.
	wait := time.Duration(idleMS) * time.Millisecond
	if d.timeout > wait {
		wait = d.timeout
	}
	if err := d.session.WaitNetworkIdle(ctx, wait); err != nil {
		res.Error = err.Error()
		d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Error: %v", err), evidence.ResultFailed)
		return
	}
	res.Success = true
	d.rec.RecordReasoning(step, string(a.Kind), "Network idle", evidence.ResultSuccess)
}

func (d *Dispatcher) execFindAndClick(ctx context.Context, step int, a schema.Action, res *ActionResult) {
	if len(a.TargetSelectorNames) == 0 {
		res.Error = "find_and_click requires target_selector_names"
		d.rec.RecordReasoning(step, string(a.Kind), res.Error, evidence.ResultFailed)
		return
	}

	// Multi-name hints are accepted but only the first name is honored.
	name := a.TargetSelectorNames[0]
	spec, ok := d.task.Selector(name)
	if !ok {
		res.Error = fmt.Sprintf("selector %q not found in catalogue", name)
		d.rec.RecordReasoning(step, string(a.Kind), res.Error, evidence.ResultFailed)
		return
	}

	strategies := selector.Parse(spec.Strategies)
	d.rec.RecordReasoning(step, string(a.Kind),
		fmt.Sprintf("Attempting to click %s with %d strategies", name, len(strategies)),
		evidence.ResultStarting)

	r := selector.Click(ctx, d.session, strategies)
	// The attempt trail is evidence regardless of outcome.
	d.rec.RecordSelectorAttempts(res.ID, name, r.Attempts, r.Chosen)

	if r.Chosen == nil {
		res.Error = fmt.Sprintf("no selector succeeded for %s", name)
		d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Failed to click %s", name), evidence.ResultFailed)
		return
	}
	res.Strategy = r.Chosen
	res.Success = true
	d.rec.RecordReasoning(step, string(a.Kind),
		fmt.Sprintf("Clicked %s using %s", name, r.Chosen.Kind), evidence.ResultSuccess)
}

func (d *Dispatcher) execAssert(ctx context.Context, step int, a schema.Action, res *ActionResult) {
	url, _ := d.session.URL(ctx)
	title, _ := d.session.Title(ctx)

	var subject string
	switch a.Condition {
	case assertions.URLIncludes:
		subject = fmt.Sprintf("Checking if '%s' in URL '%s'", a.Value, url)
	case assertions.TitleMatches:
		subject = fmt.Sprintf("Checking if '%s' in title '%s'", a.Value, title)
	default:
		subject = fmt.Sprintf("Checking %s", a.Condition)
	}
	d.rec.RecordReasoning(step, string(a.Kind), subject, evidence.ResultStarting)

	r := assertions.Evaluate(a.Condition, a.Value, url, title)
	if !r.Passed {
		// Reported on the result, but never fatal to the run.
		res.Error = r.Message
		d.rec.RecordReasoning(step, string(a.Kind), r.Message, evidence.ResultFailed)
		return
	}
	res.Success = true
	d.rec.RecordReasoning(step, string(a.Kind), r.Message, evidence.ResultSuccess)
}

func (d *Dispatcher) execCapture(ctx context.Context, step int, a schema.Action, res *ActionResult) {
	d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Capturing %v", a.What), evidence.ResultStarting)
	res.Artifacts = make(map[string]string)

	for _, what := range a.What {
		switch what {
		case "screenshot":
			path := filepath.Join(d.rec.EvidenceDir(), fmt.Sprintf("%02d_capture.png", step))
			if err := d.session.Screenshot(ctx, path); err != nil {
				res.Error = err.Error()
				d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Error: %v", err), evidence.ResultFailed)
				return
			}
			res.Artifacts["screenshot"] = path
		case "dom":
			path := filepath.Join(d.rec.EvidenceDir(), fmt.Sprintf("dom_after_%s.html", res.ID))
			if err := d.session.DumpDOM(ctx, path); err != nil {
				res.Error = err.Error()
				d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Error: %v", err), evidence.ResultFailed)
				return
			}
			res.Artifacts["dom"] = path
		case "har":
			// The network trace is recorded continuously at the session
			// level and written on close; this only references it.
			res.Artifacts["har"] = filepath.Join(d.rec.EvidenceDir(), evidence.NetworkTraceName)
		default:
			res.Error = fmt.Sprintf("unknown capture kind %q", what)
			d.rec.RecordReasoning(step, string(a.Kind), res.Error, evidence.ResultFailed)
			return
		}
	}

	res.Success = true
	d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Captured %v", a.What), evidence.ResultSuccess)
}

func (d *Dispatcher) execExtract(ctx context.Context, step int, a schema.Action, res *ActionResult) {
	d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Extracting %v", a.What), evidence.ResultStarting)
	res.Extracted = make(map[string]any)

	for _, item := range a.What {
		if item == "PageTitle" {
			title, err := d.session.Title(ctx)
			if err != nil {
				res.Error = err.Error()
				d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Error: %v", err), evidence.ResultFailed)
				return
			}
			res.Extracted["PageTitle"] = title
			continue
		}
		if spec, ok := d.task.Selector(item); ok {
			strategies := selector.Parse(spec.Strategies)
			res.Extracted[item] = selector.Inspect(ctx, d.session, strategies)
		}
	}

	keys := make([]string, 0, len(res.Extracted))
	for k := range res.Extracted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	res.Success = true
	d.rec.RecordReasoning(step, string(a.Kind), fmt.Sprintf("Extracted %v", keys), evidence.ResultSuccess)
}
