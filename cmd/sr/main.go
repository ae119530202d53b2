package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sr",
		Short: "Showrunner: local-first production planning",
		Long:  "Showrunner keeps a story bible, script and shot plan in a local store and fills them in with a generation service.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newLockCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newGCCmd())
	cmd.AddCommand(newSweepsCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newPublishCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sr %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
