// Command chronicle is the object store browser CLI.
package main

import (
	"os"

	"github.com/chronicle-labs/chronicle/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
