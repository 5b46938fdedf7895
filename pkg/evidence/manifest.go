package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest is the finalized, hash-verified summary of a run's evidence.
// Written exactly once, to run.json, after the browser session closes.
type Manifest struct {
	TaskID          string            `json:"task_id"`
	GitCommit       string            `json:"git_commit"`
	StartTime       string            `json:"start_time"`
	EndTime         string            `json:"end_time"`
	DurationSeconds float64           `json:"duration_seconds"`
	EvidenceFiles   []string          `json:"evidence_files"`
	Checksums       map[string]string `json:"checksums"`
}

// LoadManifest reads run.json from a session directory.
func LoadManifest(sessionDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Succeeded reports whether the session carries the success marker, the
// sole authoritative success signal for external consumers.
func Succeeded(sessionDir string) bool {
	_, err := os.Stat(filepath.Join(sessionDir, SuccessFlagName))
	return err == nil
}
