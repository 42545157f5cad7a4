// Command reportctl runs the report pipeline pieces offline: parse a CSV
// export, resolve tactic labels, list expected tables, route a batch of
// files and repair a saved model response.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
