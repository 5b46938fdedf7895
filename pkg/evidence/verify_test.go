package evidence

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func finalizedSession(t *testing.T, success bool) string {
	t.Helper()
	sessionDir := t.TempDir()
	r, err := NewRecorder(sessionDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(r.EvidenceDir(), "01_capture.png"), []byte("shot"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(r.EvidenceDir(), "dom_after_a1.html"), []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}
	r.RecordReasoning(1, "capture", "Captured screenshot", ResultSuccess)
	if err := r.Finalize("verify-task", time.Now().Add(-time.Second), time.Now(), success); err != nil {
		t.Fatal(err)
	}
	return sessionDir
}

func TestVerifySessionClean(t *testing.T) {
	dir := finalizedSession(t, true)
	res, err := VerifySession(dir)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	if !res.Valid {
		t.Errorf("fresh session should verify clean: %+v", res)
	}
	if res.FileCount != 3 {
		t.Errorf("file count = %d, want 3", res.FileCount)
	}
}

func TestVerifySessionDetectsTampering(t *testing.T) {
	dir := finalizedSession(t, true)
	if err := os.WriteFile(filepath.Join(dir, EvidenceDirName, "01_capture.png"), []byte("altered"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := VerifySession(dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid {
		t.Error("tampered file not detected")
	}
	if len(res.Mismatched) != 1 || res.Mismatched[0] != "evidence/01_capture.png" {
		t.Errorf("mismatched = %v", res.Mismatched)
	}
}

func TestVerifySessionDetectsMissingAndUnlisted(t *testing.T) {
	dir := finalizedSession(t, false)
	if err := os.Remove(filepath.Join(dir, EvidenceDirName, "dom_after_a1.html")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, EvidenceDirName, "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := VerifySession(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Missing) != 1 {
		t.Errorf("missing = %v", res.Missing)
	}
	if len(res.Unlisted) != 1 || res.Unlisted[0] != "evidence/stray.txt" {
		t.Errorf("unlisted = %v", res.Unlisted)
	}
}
