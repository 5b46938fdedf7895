package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/evidenceworks/webproof/pkg/browser"
	"github.com/evidenceworks/webproof/pkg/evidence"
	"github.com/evidenceworks/webproof/pkg/schema"
)

// SessionOpener opens a browser session for a run. Injectable so tests can
// substitute a fake backend.
type SessionOpener func(ctx context.Context, cfg browser.Config) (browser.Session, error)

// Engine is the run driver. Its state machine is strictly linear:
// Initializing → Running → Finalizing → Done, no retries across states.
type Engine struct {
	Task   *schema.Task
	Config Config
	Open   SessionOpener
}

// NewEngine builds a run driver backed by the chromedp session.
func NewEngine(task *schema.Task, cfg Config) *Engine {
	return &Engine{
		Task:   task,
		Config: cfg,
		Open: func(ctx context.Context, bc browser.Config) (browser.Session, error) {
			return browser.NewChromeSession(ctx, bc)
		},
	}
}

// Run executes the task and returns the run report. The session directory
// and its evidence bundle are always produced — a fatal error (browser
// fails to open, a broken action loop) is itself recorded as evidence and
// finalized with success=false. The returned error covers only failures to
// produce the bundle at all.
func (e *Engine) Run(ctx context.Context) (*RunReport, error) {
	sessionDir, err := evidence.AllocateSessionDir(e.Config.SessionsDir)
	if err != nil {
		return nil, fmt.Errorf("allocate session: %w", err)
	}
	rec, err := evidence.NewRecorder(sessionDir)
	if err != nil {
		return nil, fmt.Errorf("init recorder: %w", err)
	}

	report := &RunReport{SessionDir: sessionDir}
	start := time.Now()

	finalURL, finalTitle, fatal := e.execute(ctx, rec, report)
	report.FinalURL = finalURL
	report.FinalTitle = finalTitle

	success := fatal == nil
	if fatal != nil {
		report.Fatal = fatal.Error()
		rec.RecordReasoning(0, "error", fmt.Sprintf("Fatal error: %v", fatal), evidence.ResultFailed)
	} else {
		// Criteria outcomes are reported per criterion, but a run that
		// completed its action loop is judged successful regardless —
		// criteria inform reviewers, they do not gate the flag.
		report.Criteria = CheckCriteria(finalURL, finalTitle, e.Task.SuccessCriteria)
	}
	report.Success = success

	if err := rec.Finalize(e.Task.ID, start, time.Now(), success); err != nil {
		return report, fmt.Errorf("finalize evidence: %w", err)
	}
	return report, nil
}

// execute opens the browser and runs the action loop, appending results to
// the report. The returned error is fatal to the run (not to the bundle).
// A panic escaping the per-action guard — the session teardown, the final
// state reads — is caught here and folded into the fatal path, so the run
// always reaches finalize.
func (e *Engine) execute(ctx context.Context, rec *evidence.Recorder, report *RunReport) (url, title string, fatal error) {
	defer func() {
		if r := recover(); r != nil {
			fatal = fmt.Errorf("panic: %v", r)
		}
	}()
	bc := browser.Config{
		Headless: e.Config.Headless,
		Timeout:  e.Config.Timeout,
		HARPath:  filepath.Join(rec.EvidenceDir(), evidence.NetworkTraceName),
	}
	session, err := e.Open(ctx, bc)
	if err != nil {
		return "", "", fmt.Errorf("open browser session: %w", err)
	}
	defer session.Close()

	dispatcher := NewDispatcher(e.Task, session, rec, e.Config.Timeout)
	for i, action := range e.Task.Actions {
		step := i + 1
		if step > e.Config.MaxSteps {
			rec.RecordReasoning(step, "max_steps", "Reached max steps", evidence.ResultStopped)
			break
		}
		report.Results = append(report.Results, dispatcher.Execute(ctx, step, action))
	}

	// Final page state, best effort — criteria evaluation tolerates blanks.
	url, _ = session.URL(ctx)
	title, _ = session.Title(ctx)
	return url, title, nil
}
