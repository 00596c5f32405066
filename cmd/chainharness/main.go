// Command chainharness provisions contracts on an in-process sandbox network
// and runs YAML scenarios against them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/chainharness/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
