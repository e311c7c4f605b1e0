// Command syncsim runs and inspects synchronization-rule cascades.
package main

import (
	"fmt"
	"os"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
