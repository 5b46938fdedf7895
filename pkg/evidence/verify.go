package evidence

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// VerifyResult is the outcome of checking a session's manifest against the
// evidence files actually on disk.
type VerifyResult struct {
	FileCount  int      // files listed in the manifest
	Valid      bool     // everything listed matches and nothing is extra
	Mismatched []string // listed files whose hash no longer matches
	Missing    []string // listed files absent from disk
	Unlisted   []string // files on disk the manifest does not cover
}

// VerifySession re-hashes every file the manifest lists and cross-checks
// the evidence directory contents. A valid result means the bundle is
// exactly what was finalized: no file changed, disappeared, or appeared.
func VerifySession(sessionDir string) (*VerifyResult, error) {
	m, err := LoadManifest(sessionDir)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{FileCount: len(m.Checksums)}

	for rel, want := range m.Checksums {
		path := filepath.Join(sessionDir, filepath.FromSlash(rel))
		got, _, err := HashFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				result.Missing = append(result.Missing, rel)
				continue
			}
			return nil, fmt.Errorf("hash %s: %w", rel, err)
		}
		if got != want {
			result.Mismatched = append(result.Mismatched, rel)
		}
	}

	evidenceDir := filepath.Join(sessionDir, EvidenceDirName)
	err = filepath.WalkDir(evidenceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sessionDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if _, listed := m.Checksums[rel]; !listed {
			result.Unlisted = append(result.Unlisted, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan evidence dir: %w", err)
	}

	sort.Strings(result.Mismatched)
	sort.Strings(result.Missing)
	sort.Strings(result.Unlisted)
	result.Valid = len(result.Mismatched) == 0 && len(result.Missing) == 0 && len(result.Unlisted) == 0
	return result, nil
}
