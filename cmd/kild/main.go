// Command kild is the developer-facing CLI (spec.md §6.3): it drives the
// lifecycle engine and prints human-readable output.
package main

import (
	"os"

	"github.com/re-cinq/kild/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
