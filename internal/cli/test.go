package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/graphledger/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files through the harness",
		Long: `Run YAML scenarios against a scripted graph store.

Each scenario lists requests, the rows the store should answer with and
assertions over the statements the engine sends. When a golden file exists
at <scenarios-dir>/golden/<name>.golden the trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  graphledger test ./scenarios
  graphledger test ./scenarios --filter "merge_*"
  graphledger test ./scenarios --update
  graphledger test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	info, err := os.Stat(scenariosDir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files))}
	if len(files) == 0 && formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}
	for _, file := range files {
		result.add(runScenario(file, opts, formatter))
	}
	return reportTests(formatter, result)
}

func (r *TestResult) add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// findScenarioFiles lists .yaml and .yml files under dir in lexical order,
// skipping golden directories. filter is a glob over the file name without
// its extension.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && path != dir && d.Name() == "golden":
			return filepath.SkipDir
		case d.IsDir():
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario loads, runs and checks one scenario file. A golden file next
// to it, when present, must match the trace exactly.
func runScenario(file string, opts *TestOptions, formatter *OutputFormatter) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(file)}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return res.fail(formatter, fmt.Sprintf("failed to load scenario: %v", err))
	}
	res.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return res.fail(formatter, fmt.Sprintf("execution failed: %v", err))
	}

	golden := goldenFilePath(file)
	note := ""
	if opts.Update {
		if err := writeGolden(golden, scenario, result); err != nil {
			return res.fail(formatter, fmt.Sprintf("failed to update golden file: %v", err))
		}
		note = " (golden updated)"
	} else if err := checkGolden(golden, scenario, result); err != nil {
		return res.fail(formatter, err.Error())
	}

	if !result.Pass {
		return res.fail(formatter, result.Errors...)
	}
	res.Pass = true
	if formatter.Format != "json" {
		fmt.Fprintf(formatter.Writer, "✓ %s%s\n", res.Name, note)
	}
	return res
}

func (r ScenarioResult) fail(formatter *OutputFormatter, errs ...string) ScenarioResult {
	r.Pass = false
	r.Errors = errs
	if formatter.Format != "json" {
		fmt.Fprintf(formatter.Writer, "✗ %s\n", r.Name)
		for _, e := range errs {
			fmt.Fprintf(formatter.Writer, "  %s\n", e)
		}
	}
	return r
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func writeGolden(path string, scenario *harness.Scenario, result *harness.Result) error {
	data, err := harness.MarshalSnapshot(scenario, result)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// checkGolden fails only when a golden file exists and differs. Without
// one, assertions alone decide.
func checkGolden(path string, scenario *harness.Scenario, result *harness.Result) error {
	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("golden comparison failed: %w", err)
	}
	got, err := harness.MarshalSnapshot(scenario, result)
	if err != nil {
		return fmt.Errorf("golden comparison failed: %w", err)
	}
	if !bytes.Equal(want, got) {
		return errors.New("trace does not match golden file (run with --update to regenerate)")
	}
	return nil
}

// reportTests prints the summary. Any failed scenario makes the command
// exit 1.
func reportTests(formatter *OutputFormatter, result TestResult) error {
	var failure error
	if result.Failed > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_TEST_FAILED", Message: failure.Error()}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintf(formatter.Writer, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if failure == nil {
		fmt.Fprintln(formatter.Writer, "✓ All scenarios passed")
	}
	return failure
}
