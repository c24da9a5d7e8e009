// Command atomspace loads atoms, runs pattern queries against them and
// keeps the space in SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/atomspace/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
