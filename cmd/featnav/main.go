// Command featnav steps through the records of a spatial dataset one at a
// time, from a local terminal or over SSH.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "featnav:", err)
		os.Exit(GetExitCode(err))
	}
}
