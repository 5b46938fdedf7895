package evidence

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/evidenceworks/webproof/pkg/selector"
)

// TestAllocateSessionDirFormat checks the <UTC ts>_run-NNN naming.
func TestAllocateSessionDirFormat(t *testing.T) {
	root := t.TempDir()
	dir, err := AllocateSessionDir(root)
	if err != nil {
		t.Fatalf("AllocateSessionDir: %v", err)
	}
	name := filepath.Base(dir)
	re := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}Z_run-\d{3}$`)
	if !re.MatchString(name) {
		t.Errorf("session name %q does not match <UTC ts>_run-NNN", name)
	}
	if !strings.HasSuffix(name, "_run-001") {
		t.Errorf("first session in a fresh root should use counter 001, got %q", name)
	}
}

// TestAllocateSessionDirDisambiguates verifies runs started within the same
// clock-second get distinct directories via the counter.
func TestAllocateSessionDirDisambiguates(t *testing.T) {
	root := t.TempDir()
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		dir, err := AllocateSessionDir(root)
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
		if seen[dir] {
			t.Fatalf("directory %q allocated twice", dir)
		}
		seen[dir] = true
	}
}

// TestFinalizeWritesBundle exercises the full finalize path: selectors,
// reasoning, manifest checksums, and the success marker.
func TestFinalizeWritesBundle(t *testing.T) {
	sessionDir := t.TempDir()
	r, err := NewRecorder(sessionDir)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	// An artifact the manifest must cover.
	artifact := filepath.Join(r.EvidenceDir(), "01_capture.png")
	if err := os.WriteFile(artifact, []byte("png-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	final := selector.Strategy{Kind: selector.CSS, Query: "#go"}
	r.RecordSelectorAttempts("click_pricing", "pricing_link", []selector.Attempt{
		{Strategy: selector.Strategy{Kind: selector.Aria, Query: "Pricing"}, Error: "element not found"},
		{Strategy: final, OK: true},
	}, &final)
	r.RecordReasoning(1, "goto", "Navigating to https://example.com", ResultStarting)
	r.RecordReasoning(1, "goto", "Navigated to https://example.com", ResultSuccess)

	start := time.Now().Add(-3 * time.Second)
	end := time.Now()
	if err := r.Finalize("demo-task", start, end, true); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// selectors.json holds the trail keyed by action id.
	var selectors map[string]SelectorRecord
	data, err := os.ReadFile(filepath.Join(r.EvidenceDir(), SelectorsFileName))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &selectors); err != nil {
		t.Fatalf("selectors.json: %v", err)
	}
	rec, ok := selectors["click_pricing"]
	if !ok {
		t.Fatal("selectors.json missing click_pricing record")
	}
	if len(rec.Attempts) != 2 || rec.Final == nil || rec.Final.Query != "#go" {
		t.Errorf("selector record = %+v", rec)
	}

	// reasoning.jsonl is one JSON object per line, in append order.
	f, err := os.Open(filepath.Join(sessionDir, ReasoningFileName))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var entries []ReasoningEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e ReasoningEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("reasoning line: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d reasoning entries, want 2", len(entries))
	}
	if entries[0].Result != ResultStarting || entries[1].Result != ResultSuccess {
		t.Errorf("reasoning order broken: %+v", entries)
	}

	// Manifest checksums cover exactly the evidence dir contents, and
	// re-hashing reproduces the recorded digest.
	m, err := LoadManifest(sessionDir)
	if err != nil {
		t.Fatal(err)
	}
	if m.TaskID != "demo-task" {
		t.Errorf("task id = %q", m.TaskID)
	}
	if m.DurationSeconds <= 0 {
		t.Errorf("duration = %v", m.DurationSeconds)
	}
	wantFiles := map[string]bool{
		"evidence/01_capture.png": true,
		"evidence/selectors.json": true,
	}
	if len(m.Checksums) != len(wantFiles) {
		t.Errorf("checksum keys = %v, want %v", m.Checksums, wantFiles)
	}
	for rel, sum := range m.Checksums {
		if !wantFiles[rel] {
			t.Errorf("unexpected manifest entry %q", rel)
		}
		got, _, err := HashFile(filepath.Join(sessionDir, rel))
		if err != nil {
			t.Fatal(err)
		}
		if got != sum {
			t.Errorf("re-hash of %s = %s, manifest says %s", rel, got, sum)
		}
	}

	if !Succeeded(sessionDir) {
		t.Error("success.flag missing after successful finalize")
	}
	info, err := os.Stat(filepath.Join(sessionDir, SuccessFlagName))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("success.flag should be zero-byte, got %d bytes", info.Size())
	}
}

// TestFinalizeWithoutSuccessOmitsFlag verifies the marker exists iff the
// run was judged successful.
func TestFinalizeWithoutSuccessOmitsFlag(t *testing.T) {
	sessionDir := t.TempDir()
	r, err := NewRecorder(sessionDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Finalize("t", time.Now(), time.Now(), false); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if Succeeded(sessionDir) {
		t.Error("success.flag present after unsuccessful run")
	}
	if _, err := LoadManifest(sessionDir); err != nil {
		t.Errorf("manifest should be written even for failed runs: %v", err)
	}
}
