package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evidenceworks/webproof/pkg/evidence"
	"github.com/evidenceworks/webproof/pkg/runtime"
	"github.com/evidenceworks/webproof/pkg/schema"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	loadDotEnv() // load .env file if present (gitignored)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotEnv reads a .env file from the working directory and sets
// any variables that aren't already set in the environment.
// Lines are KEY=VALUE (or KEY="VALUE"). Comments (#) and blanks are skipped.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return // no .env file — that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		val = strings.Trim(val, `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "webproof",
	Short: "Evidence-first browser task runner",
	Long:  "webproof — executes declarative browser tasks and records a verifiable evidence bundle (reasoning log, selector trails, artifacts, hashed manifest) for every run.",
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [task.yaml]",
	Short: "Validate a task file against the schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	t, errs := schema.ValidateFile(filePath)
	if len(errs) > 0 {
		var errors []*schema.ValidationError
		var warnings []*schema.ValidationError
		for _, e := range errs {
			if e.Severity == "warning" {
				warnings = append(warnings, e)
			} else {
				errors = append(errors, e)
			}
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "  ⚠ [%s] %s\n", w.Phase, w.Message)
			if w.Path != "" {
				fmt.Fprintf(os.Stderr, "    at: %s\n", w.Path)
			}
		}
		if len(errors) > 0 {
			fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n\n", len(errors))
			for i, e := range errors {
				fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
				if e.Path != "" {
					fmt.Fprintf(os.Stderr, "     at: %s\n", e.Path)
				}
			}
			return fmt.Errorf("validation failed with %d error(s)", len(errors))
		}
	}
	fmt.Printf("✓ %s is valid (%d actions)\n", t.ID, len(t.Actions))
	return nil
}

// --- exec ---

var (
	execSessionsDir string
	execJSON        bool
)

var execCmd = &cobra.Command{
	Use:   "exec [task.yaml]",
	Short: "Execute a task and write its evidence bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	t, errs := schema.ValidateFile(filePath)
	for _, e := range errs {
		if e.Severity == "error" {
			return fmt.Errorf("validate first: %s", e)
		}
	}

	cfg := runtime.ConfigFromEnv()
	if execSessionsDir != "" {
		cfg.SessionsDir = execSessionsDir
	}

	fmt.Printf("▶ %s (%d actions, budget %d)\n", t.ID, len(t.Actions), cfg.MaxSteps)

	report, err := runtime.NewEngine(t, cfg).Run(context.Background())
	if err != nil {
		return err
	}

	if execJSON {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
	} else {
		for i, r := range report.Results {
			glyph := "✓"
			if !r.Success {
				glyph = "✗"
			}
			fmt.Printf("  %s %d. %s (%s)", glyph, i+1, r.ID, r.Kind)
			if r.Error != "" {
				fmt.Printf(" — %s", r.Error)
			}
			fmt.Println()
		}
		if len(report.Results) < len(t.Actions) {
			fmt.Printf("  ⊘ stopped after %d of %d actions (step budget)\n", len(report.Results), len(t.Actions))
		}
		for _, c := range report.Criteria {
			glyph := "✓"
			if !c.Met {
				glyph = "✗"
			}
			fmt.Printf("  %s criterion: %s\n", glyph, c.Criterion)
		}
		fmt.Printf("Session: %s\n", report.SessionDir)
		if report.Success {
			fmt.Println("✓ success")
		} else {
			fmt.Printf("✗ failed: %s\n", report.Fatal)
		}
	}

	if !report.Success {
		return fmt.Errorf("run failed")
	}
	return nil
}

// --- verify ---

var verifyCmd = &cobra.Command{
	Use:   "verify [session-dir]",
	Short: "Re-hash a session's evidence against its manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	res, err := evidence.VerifySession(args[0])
	if err != nil {
		return err
	}

	if res.Valid {
		fmt.Printf("✓ %d file(s) verified, bundle intact\n", res.FileCount)
		return nil
	}
	for _, f := range res.Mismatched {
		fmt.Printf("  ✗ %s: checksum mismatch\n", f)
	}
	for _, f := range res.Missing {
		fmt.Printf("  ✗ %s: missing from disk\n", f)
	}
	for _, f := range res.Unlisted {
		fmt.Printf("  ⚠ %s: not covered by manifest\n", f)
	}
	return fmt.Errorf("bundle verification failed")
}

// --- sessions ---

var sessionsDir string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions and their outcomes",
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	root := sessionsDir
	if root == "" {
		root = runtime.ConfigFromEnv().SessionsDir
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no sessions recorded")
			return nil
		}
		return err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	// Session names sort chronologically; newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names {
		dir := filepath.Join(root, name)
		glyph := "✗"
		if evidence.Succeeded(dir) {
			glyph = "✓"
		}
		taskID, duration := "?", ""
		if m, err := evidence.LoadManifest(dir); err == nil {
			taskID = m.TaskID
			duration = fmt.Sprintf("%.1fs", m.DurationSeconds)
		}
		fmt.Printf("  %s %s  %s  %s\n", glyph, name, taskID, duration)
	}
	return nil
}

// --- schema export ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Export the task JSON Schema to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := schema.GenerateJSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("webproof %s (build: %s)\n", version, commit)
	},
}

func init() {
	execCmd.Flags().StringVar(&execSessionsDir, "sessions-dir", "", "Root directory for session output (overrides WEBPROOF_SESSIONS_DIR)")
	execCmd.Flags().BoolVar(&execJSON, "json", false, "Output the run report as structured JSON")
	sessionsCmd.Flags().StringVar(&sessionsDir, "dir", "", "Sessions root to list (overrides WEBPROOF_SESSIONS_DIR)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
