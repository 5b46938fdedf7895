// Package evidence implements the per-run evidence bundle: session
// directory allocation, the selector/reasoning recorder, SHA256 hashing,
// the finalized manifest, and manifest verification.
package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Well-known file names inside a session directory.
const (
	EvidenceDirName   = "evidence"
	SelectorsFileName = "selectors.json"
	ReasoningFileName = "reasoning.jsonl"
	ManifestFileName  = "run.json"
	SuccessFlagName   = "success.flag"
	NetworkTraceName  = "network.har"
)

// sessionTimeFormat renders the UTC second the run started, filesystem-safe.
const sessionTimeFormat = "2006-01-02T15-04-05Z"

// AllocateSessionDir creates a uniquely named session directory under root:
// <UTC timestamp>_run-<3-digit counter>. The counter starts at 1 and
// increments until an unused name is found, so a name is never reused even
// for runs started within the same clock-second. Mkdir provides the
// create-exclusive check, which also holds against concurrent runs.
func AllocateSessionDir(root string) (string, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("create sessions root: %w", err)
	}

	ts := time.Now().UTC().Format(sessionTimeFormat)
	for n := 1; ; n++ {
		dir := filepath.Join(root, fmt.Sprintf("%s_run-%03d", ts, n))
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("create session dir: %w", err)
		}
	}
}
