// Package cmd provides the CLI commands for quicksearch.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quicksearch",
		Short: "Full-text search over a JSON document store",
		Long: `quicksearch stores JSON documents and answers full-text queries over
any combination of their fields. Each distinct field list, language and
filter gets its own persisted inverted index, built lazily on first use
and kept up to date from the document change feed.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("quicksearch version {{.Version}}\n")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
