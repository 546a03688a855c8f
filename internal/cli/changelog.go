package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/graphledger/internal/descriptor"
	"github.com/roach88/graphledger/internal/graph"
)

// ChangeLogOptions holds flags for the changelog command.
type ChangeLogOptions struct {
	*RootOptions
	Caller   string
	External bool
	Count    bool
	Min      int64
	Limit    int64
}

// ChangeLogResult is the payload printed for a page of change log entries.
type ChangeLogResult struct {
	Count   int                         `json:"count"`
	Entries []descriptor.ChangeLogEntry `json:"entries"`
}

// NewChangeLogCommand creates the changelog command.
func NewChangeLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChangeLogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Page through the change log",
		Long: `Read change log entries in number order.

By default only the caller's own entries are returned; --external selects
entries written by every other user instead. --min is a low-water mark:
entries numbered at or above it match.

Examples:
  graphledger changelog --caller 0190c1d2-...
  graphledger changelog --caller 0190c1d2-... --external --min 120 --limit 50
  graphledger changelog --caller 0190c1d2-... --count`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(cmd.Flags().Changed("min"))
			if err != nil {
				formatter := newFormatter(opts.RootOptions, cmd)
				if outErr := formatter.Error(ErrCodeInvalidFlag, err.Error(), nil); outErr != nil {
					return outErr
				}
				return WrapExitError(ExitCommandError, "invalid flags", err)
			}
			if opts.Count {
				return executeRequest(opts.RootOptions, cmd, req)
			}
			return executeRequestWith(opts.RootOptions, cmd, req, outputChangeLog)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "caller GUID (required)")
	_ = cmd.MarkFlagRequired("caller")
	cmd.Flags().BoolVar(&opts.External, "external", false, "select entries written by other users")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "return the number of matching entries")
	cmd.Flags().Int64Var(&opts.Min, "min", 0, "lowest change log number to return")
	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "maximum number of entries (0 for all)")

	return cmd
}

// request builds the getChangeLogs envelope. minSet distinguishes --min 0
// from an absent flag.
func (o *ChangeLogOptions) request(minSet bool) (descriptor.Request, error) {
	if o.Limit < 0 {
		return descriptor.Request{}, fmt.Errorf("--limit must not be negative, got %d", o.Limit)
	}
	q := descriptor.ChangeLogQuery{
		External: o.External,
		Count:    o.Count,
		Limit:    descriptor.Limit(o.Limit),
	}
	if minSet {
		q.Min = &o.Min
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return descriptor.Request{}, fmt.Errorf("encode change log query: %w", err)
	}
	return descriptor.Request{
		Function: descriptor.OpGetChangeLogs.String(),
		Query:    raw,
		GUID:     o.Caller,
	}, nil
}

// outputChangeLog decodes each returned (:M_ChangeLog) node into an entry.
func outputChangeLog(formatter *OutputFormatter, function string, rows []graph.Row) error {
	result := ChangeLogResult{Entries: make([]descriptor.ChangeLogEntry, 0, len(rows))}
	for i, row := range rows {
		node, _ := row["n"].(map[string]any)
		props, _ := node["properties"].(map[string]any)
		entry, err := descriptor.EntryFromProperties(props)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("change log row %d", i), err)
		}
		result.Entries = append(result.Entries, entry)
	}
	result.Count = len(result.Entries)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s: %d entries\n", function, result.Count)
	for _, e := range result.Entries {
		fmt.Fprintf(w, "  #%d %s %s %s", e.Number, e.Action, e.ItemType, e.ItemGUID)
		switch e.Action {
		case descriptor.ActionCreate:
			if e.Label != "" {
				fmt.Fprintf(w, " label=%s", e.Label)
			}
		case descriptor.ActionChange:
			fmt.Fprintf(w, " %s=%v", e.Attribute, e.Value)
		}
		fmt.Fprintln(w)
	}
	return nil
}
