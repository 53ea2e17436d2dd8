// Command vcr inspects fixture files: it validates them against a match
// configuration, reports which recorded response a request would replay
// and imports go-vcr cassettes.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
