// Command graphledger compiles entity descriptors into Cypher and runs
// them against Neo4j with a change log.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/graphledger/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
