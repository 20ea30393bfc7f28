// Command memoirctl is a standalone CLI over the memoir library, useful
// for inspecting and driving a repository's memory/history database
// outside of a host integration.
package main

import (
	"fmt"
	"os"

	"github.com/coderef/memoir/cmd/memoirctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
