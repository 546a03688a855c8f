package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/graphledger/internal/descriptor"
	"github.com/roach88/graphledger/internal/graph"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Caller string // overrides the request's GUID
}

// ExecResult is the payload printed for a finished request.
type ExecResult struct {
	Function string      `json:"function"`
	Count    int         `json:"count"`
	Rows     []graph.Row `json:"rows"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <request-file>",
		Short: "Run one request against the graph store",
		Long: `Run one request envelope against Neo4j and print the normalized rows.

The request file is CUE or JSON with the fields function, query and GUID:

  {"function": "createNode", "query": {"type": "topic", "properties": {"name": "go"}}, "GUID": "..."}

Exit codes:
  0 - Request succeeded
  1 - The engine rejected or failed the request
  2 - Command error (bad request file, store unreachable, etc.)

Examples:
  graphledger exec ./requests/create-topic.json
  graphledger exec ./requests/search.cue --caller 0190c1d2-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := LoadRequest(args[0])
			if err != nil {
				return outputLoadError(newFormatter(opts.RootOptions, cmd), err)
			}
			if opts.Caller != "" {
				req.GUID = opts.Caller
			}
			return executeRequest(opts.RootOptions, cmd, req)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "caller GUID (overrides the request file)")

	return cmd
}

// executeRequest opens the runtime, runs req once and prints the result.
// SIGINT and SIGTERM cancel the request.
// rowsPrinter prints the rows of a finished request.
type rowsPrinter func(formatter *OutputFormatter, function string, rows []graph.Row) error

func executeRequest(opts *RootOptions, cmd *cobra.Command, req descriptor.Request) error {
	return executeRequestWith(opts, cmd, req, outputRows)
}

func executeRequestWith(opts *RootOptions, cmd *cobra.Command, req descriptor.Request, printRows rowsPrinter) error {
	formatter := newFormatter(opts, cmd)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, opts)
	if err != nil {
		if outErr := formatter.Error(ErrCodeStoreOpen, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "failed to open runtime", err)
	}
	defer rt.Close(ctx)

	formatter.VerboseLog("Executing %s", req.Function)
	rows, err := rt.engine.Execute(ctx, req)
	if err != nil {
		return formatter.EngineError(err)
	}
	if rows == nil {
		rows = []graph.Row{}
	}
	return printRows(formatter, req.Function, rows)
}

func outputRows(formatter *OutputFormatter, function string, rows []graph.Row) error {
	result := ExecResult{Function: function, Count: len(rows), Rows: rows}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputRowsText(formatter, result)
}

func outputRowsText(formatter *OutputFormatter, result ExecResult) error {
	fmt.Fprintf(formatter.Writer, "✓ %s: %d row(s)\n", result.Function, result.Count)
	for _, row := range result.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		fmt.Fprintf(formatter.Writer, "  %s\n", data)
	}
	return nil
}

// outputLoadError reports a request file that could not be loaded.
func outputLoadError(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	if loadErr, ok := err.(*LoadError); ok {
		code = loadErr.Code
	}
	if outErr := formatter.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "failed to load request", err)
}
