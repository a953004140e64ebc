// Package main provides the dfbridge command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/dfbridge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
