// Command pipesim runs, validates and tests pipeline simulations.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pipesim/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
