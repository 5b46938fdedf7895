package evidence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/evidenceworks/webproof/pkg/selector"
)

// Reasoning outcome tags.
const (
	ResultStarting = "starting"
	ResultSuccess  = "success"
	ResultFailed   = "failed"
	ResultStopped  = "stopped"
)

// ReasoningEntry is one append-only record in the run's narrative log.
type ReasoningEntry struct {
	TS      time.Time `json:"ts"`
	Step    int       `json:"step"`
	Action  string    `json:"action"`
	Thought string    `json:"thought"`
	Result  string    `json:"result"`
}

// SelectorRecord holds the full resolution trail for one action.
type SelectorRecord struct {
	Name     string             `json:"name"`
	Attempts []selector.Attempt `json:"attempts"`
	Final    *selector.Strategy `json:"final"`
}

// Recorder accumulates selector attempts, reasoning entries, and artifact
// files during a run, and assembles the durable evidence bundle at finalize
// time. One Recorder owns one session directory; it is not safe for use
// across runs or goroutines.
type Recorder struct {
	sessionDir  string
	evidenceDir string
	selectors   map[string]SelectorRecord
	reasoning   []ReasoningEntry
}

// NewRecorder creates the evidence subdirectory and an empty recorder for
// the given session directory.
func NewRecorder(sessionDir string) (*Recorder, error) {
	evidenceDir := filepath.Join(sessionDir, EvidenceDirName)
	if err := os.MkdirAll(evidenceDir, 0755); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}
	return &Recorder{
		sessionDir:  sessionDir,
		evidenceDir: evidenceDir,
		selectors:   make(map[string]SelectorRecord),
	}, nil
}

// SessionDir returns the session directory this recorder owns.
func (r *Recorder) SessionDir() string { return r.sessionDir }

// EvidenceDir returns the directory artifact files belong in.
func (r *Recorder) EvidenceDir() string { return r.evidenceDir }

// RecordSelectorAttempts stores the resolution trail for an action.
func (r *Recorder) RecordSelectorAttempts(actionID, name string, attempts []selector.Attempt, final *selector.Strategy) {
	r.selectors[actionID] = SelectorRecord{Name: name, Attempts: attempts, Final: final}
}

// RecordReasoning appends one narrative entry. Entries are never reordered
// or rewritten; append order is the authoritative ordering.
func (r *Recorder) RecordReasoning(step int, action, thought, result string) {
	r.reasoning = append(r.reasoning, ReasoningEntry{
		TS:      time.Now(),
		Step:    step,
		Action:  action,
		Thought: thought,
		Result:  result,
	})
}

// Reasoning returns the entries recorded so far, in append order.
func (r *Recorder) Reasoning() []ReasoningEntry { return r.reasoning }

// Finalize writes the durable bundle, strictly in this order: selector
// attempts, reasoning log (fully flushed), manifest (hashing everything in
// the evidence directory at this moment), then the success marker iff
// success. Must be called exactly once per session — a Recorder is
// single-use by design.
func (r *Recorder) Finalize(taskID string, start, end time.Time, success bool) error {
	if err := r.writeSelectors(); err != nil {
		return err
	}
	if err := r.writeReasoning(); err != nil {
		return err
	}
	if err := r.writeManifest(taskID, start, end); err != nil {
		return err
	}
	if success {
		if err := r.markSuccess(); err != nil {
			return err
		}
	}
	return nil
}

// writeSelectors writes evidence/selectors.json.
func (r *Recorder) writeSelectors() error {
	data, err := json.MarshalIndent(r.selectors, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal selectors: %w", err)
	}
	path := filepath.Join(r.evidenceDir, SelectorsFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write selectors: %w", err)
	}
	return nil
}

// writeReasoning writes reasoning.jsonl, one JSON object per line, flushed
// and synced before returning so the manifest never precedes it on disk.
func (r *Recorder) writeReasoning() error {
	path := filepath.Join(r.sessionDir, ReasoningFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open reasoning log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, entry := range r.reasoning {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encode reasoning entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush reasoning log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync reasoning log: %w", err)
	}
	return nil
}

// writeManifest scans the evidence directory, hashes every file, and writes
// run.json.
func (r *Recorder) writeManifest(taskID string, start, end time.Time) error {
	var files []string
	checksums := make(map[string]string)

	err := filepath.WalkDir(r.evidenceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.sessionDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		files = append(files, rel)

		sum, _, err := HashFile(path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", rel, err)
		}
		checksums[rel] = sum
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan evidence dir: %w", err)
	}
	sort.Strings(files)

	m := Manifest{
		TaskID:          taskID,
		GitCommit:       GitCommit(),
		StartTime:       start.UTC().Format(time.RFC3339),
		EndTime:         end.UTC().Format(time.RFC3339),
		DurationSeconds: end.Sub(start).Seconds(),
		EvidenceFiles:   files,
		Checksums:       checksums,
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(r.sessionDir, ManifestFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// markSuccess creates the zero-byte success marker.
func (r *Recorder) markSuccess() error {
	path := filepath.Join(r.sessionDir, SuccessFlagName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create success flag: %w", err)
	}
	return f.Close()
}
