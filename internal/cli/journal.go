package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/graphledger/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database   string // overrides journal.path from config
	Limit      int
	Incomplete bool
	Statements bool
}

// JournalEntry is one journaled request as printed by the journal command.
type JournalEntry struct {
	Seq        int64             `json:"seq"`
	ID         string            `json:"id"`
	Operation  string            `json:"operation"`
	Caller     string            `json:"caller"`
	Payload    json.RawMessage   `json:"payload"`
	Status     string            `json:"status"`
	ErrorCode  string            `json:"error_code,omitempty"`
	Message    string            `json:"message,omitempty"`
	Rows       int               `json:"rows"`
	Numbers    []int64           `json:"numbers,omitempty"`
	Statements []store.Statement `json:"statements,omitempty"`
}

// statusIncomplete marks a request that has no outcome.
const statusIncomplete = "incomplete"

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled requests and their outcomes",
		Long: `List requests recorded in the SQLite journal, oldest first.

A request without an outcome was interrupted before it finished; for a
mutation its change log entries tell whether the graph holds its effects.

Examples:
  graphledger journal --limit 20
  graphledger journal --incomplete
  graphledger journal --db ./data/journal.db --statements --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (default from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent N requests (0 for all)")
	cmd.Flags().BoolVar(&opts.Incomplete, "incomplete", false, "show only requests without an outcome")
	cmd.Flags().BoolVar(&opts.Statements, "statements", false, "include the statements each request ran")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	path := opts.Database
	if path == "" {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no journal configured (set journal.path or --db)")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if outErr := formatter.Error(ErrCodeNotFound, fmt.Sprintf("journal not found: %s", path), nil); outErr != nil {
			return outErr
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	total, err := st.Count(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	var entries []JournalEntry
	if opts.Incomplete {
		reqs, err := st.FindIncomplete(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		entries = make([]JournalEntry, 0, len(reqs))
		for _, req := range reqs {
			entries = append(entries, journalEntry(store.Entry{Request: req}, false))
		}
		if opts.Limit > 0 && len(entries) > opts.Limit {
			entries = entries[len(entries)-opts.Limit:]
		}
	} else {
		raw, err := st.ReadEntries(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		entries = make([]JournalEntry, 0, len(raw))
		for _, e := range raw {
			entries = append(entries, journalEntry(e, opts.Statements))
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}
	return outputJournalText(formatter, entries, total)
}

func journalEntry(e store.Entry, withStatements bool) JournalEntry {
	entry := JournalEntry{
		Seq:       e.Request.Seq,
		ID:        e.Request.ID,
		Operation: e.Request.Operation,
		Caller:    e.Request.Caller,
		Payload:   e.Request.Payload,
		Status:    statusIncomplete,
	}
	if e.Outcome == nil {
		return entry
	}
	entry.Status = string(e.Outcome.Status)
	entry.ErrorCode = e.Outcome.ErrorCode
	entry.Message = e.Outcome.Message
	entry.Rows = e.Outcome.Rows
	entry.Numbers = e.Outcome.Numbers
	if withStatements {
		entry.Statements = e.Outcome.Statements
	}
	return entry
}

// outputJournalText lists entries; total is every request in the journal.
func outputJournalText(formatter *OutputFormatter, entries []JournalEntry, total int64) error {
	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "No journaled requests.")
		return nil
	}

	for _, e := range entries {
		fmt.Fprintf(w, "#%d %s caller=%s %s", e.Seq, e.Operation, e.Caller, e.Status)
		switch e.Status {
		case string(store.StatusOK):
			fmt.Fprintf(w, " rows=%d", e.Rows)
		case string(store.StatusError):
			fmt.Fprintf(w, " %s: %s", e.ErrorCode, e.Message)
		}
		if len(e.Numbers) > 0 {
			fmt.Fprintf(w, " numbers=%v", e.Numbers)
		}
		fmt.Fprintln(w)
		for _, stmt := range e.Statements {
			fmt.Fprintf(w, "    %s\n", stmt.Cypher)
		}
	}
	if int64(len(entries)) < total {
		fmt.Fprintf(w, "\n%d of %d request(s)\n", len(entries), total)
	} else {
		fmt.Fprintf(w, "\n%d request(s)\n", len(entries))
	}
	return nil
}
