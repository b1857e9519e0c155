// Package main provides the entry point for the quicksearch server.
package main

import (
	"os"

	"github.com/gcbaptista/quicksearch/cmd/quicksearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
