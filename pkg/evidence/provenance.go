package evidence

import (
	"os/exec"
	"strings"
)

// buildCommit may be set at build time via
// -ldflags "-X github.com/evidenceworks/webproof/pkg/evidence.buildCommit=...".
var buildCommit = ""

// GitCommit returns the source revision this binary was built from,
// best-effort: the build-time value when present, otherwise a live
// `git rev-parse HEAD`, otherwise "unknown".
func GitCommit() string {
	if buildCommit != "" {
		return buildCommit
	}
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
