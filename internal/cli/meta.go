package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/graphledger/internal/cypher"
	"github.com/roach88/graphledger/internal/descriptor"
)

// MetaOptions holds flags for the meta command.
type MetaOptions struct {
	*RootOptions
	Caller string
}

// NewMetaCommand creates the meta command.
func NewMetaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MetaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "meta <query-name>",
		Short: "Run a diagnostic metadata query",
		Long: fmt.Sprintf(`Run one of the fixed diagnostic queries against the graph store.

Known queries: %s

Only myTrash uses --caller.`, strings.Join(cypher.MetaQueryNames(), ", ")),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRequest(opts.RootOptions, cmd, metaRequest(args[0], opts.Caller))
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "caller GUID")

	return cmd
}

// metaRequest builds a getMetaData envelope. Unknown names are left for the
// engine to reject as UNKNOWN_OPERATION.
func metaRequest(name, caller string) descriptor.Request {
	raw, _ := json.Marshal(name)
	return descriptor.Request{
		Function: descriptor.OpGetMetaData.String(),
		Query:    raw,
		GUID:     caller,
	}
}
