// Package main provides the entry point for the gridstitch command.
package main

import (
	"os"

	"gridstitch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
