package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/graphledger/internal/engine"
	"github.com/roach88/graphledger/internal/graph"
	"github.com/roach88/graphledger/internal/sequence"
	"github.com/roach88/graphledger/internal/testutil"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Caller        string
	Start         int64 // last change log number already used
	Deterministic bool  // sequential GUIDs instead of UUIDv7
	Rows          int64 // rows each count statement reports
}

// CompiledStatement is one statement the request would send.
type CompiledStatement struct {
	Cypher  string         `json:"cypher"`
	Params  map[string]any `json:"params"`
	Numbers []int64        `json:"numbers,omitempty"`
}

// CompilationResult holds every statement of a dry run, in order.
type CompilationResult struct {
	Function   string              `json:"function"`
	Statements []CompiledStatement `json:"statements"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <request-file>",
		Short: "Show the Cypher a request would run",
		Long: `Compile a request without touching a database.

Statements run against an in-memory store that matches nothing, so a merge
takes its create branch. Mutations that can touch many rows first count
them; the dry run reports --rows matches to each count so the mutation is
shown numbered for that many rows. Change log numbers come from an
in-memory sequence starting after --start.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "caller GUID (overrides the request file)")
	cmd.Flags().Int64Var(&opts.Start, "start", 0, "last change log number already used")
	cmd.Flags().BoolVar(&opts.Deterministic, "deterministic", false, "generate sequential GUIDs")
	cmd.Flags().Int64Var(&opts.Rows, "rows", 1, "rows each count statement reports")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	req, err := LoadRequest(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if opts.Caller != "" {
		req.GUID = opts.Caller
	}
	if opts.Start < 0 {
		if outErr := formatter.Error(ErrCodeInvalidFlag, "--start must not be negative", nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, "--start must not be negative")
	}
	if opts.Rows < 0 {
		if outErr := formatter.Error(ErrCodeInvalidFlag, "--rows must not be negative", nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, "--rows must not be negative")
	}

	recorder := graph.NewRecordingStore()
	recorder.AnswerCounts(opts.Rows)
	engineOpts := []engine.Option{engine.WithLogger(slog.Default())}
	if opts.Deterministic {
		engineOpts = append(engineOpts, engine.WithGUIDGenerator(testutil.NewSequentialGUIDs()))
	}
	eng := engine.New(recorder, sequence.NewClockAt(opts.Start), engineOpts...)

	formatter.VerboseLog("Compiling %s from %s", req.Function, path)
	if _, err := eng.Execute(cmd.Context(), req); err != nil {
		return formatter.EngineError(err)
	}

	result := CompilationResult{Function: req.Function, Statements: []CompiledStatement{}}
	for _, stmt := range recorder.Statements() {
		result.Statements = append(result.Statements, CompiledStatement{
			Cypher:  stmt.Cypher,
			Params:  stmt.Params,
			Numbers: stmt.Numbers,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputCompileText(formatter, result)
}

func outputCompileText(formatter *OutputFormatter, result CompilationResult) error {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s: %d statement(s)\n", result.Function, len(result.Statements))
	for i, stmt := range result.Statements {
		fmt.Fprintln(w)
		header := fmt.Sprintf("[%d]", i+1)
		if len(stmt.Numbers) > 0 {
			nums := make([]string, len(stmt.Numbers))
			for j, n := range stmt.Numbers {
				nums[j] = fmt.Sprint(n)
			}
			header += " change log " + strings.Join(nums, ", ")
		}
		fmt.Fprintln(w, header)
		fmt.Fprintln(w, stmt.Cypher)

		params, err := json.Marshal(stmt.Params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		fmt.Fprintf(w, "params: %s\n", params)
	}
	return nil
}
