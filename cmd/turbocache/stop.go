// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"turbocache/internal/cacheserver"
	"turbocache/internal/gha"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// stopFailurePrefix marks the only failure path of the cleanup phase.
// Teardown must not mask the build's own result, so everything else is
// reported and swallowed.
const stopFailurePrefix = "Error in post action: "

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the remote cache server after the build",
	Long: `Stop the Turborepo remote cache server started by 'turbocache start' and
display its captured logs.

Runs as the post step regardless of the build outcome. A missing server
(start never ran or failed) is not an error, and neither is a process
that already exited.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func runStop(cmd *cobra.Command, _ []string) error {
	report := gha.NewCommands(cmd.OutOrStdout())

	cleaner := cacheserver.NewCleaner()
	cleaner.Report = report
	if verbose {
		cleaner.Logger.SetLevel(log.DebugLevel)
	}

	if err := cleaner.Run(); err != nil {
		report.Error(stopFailurePrefix + err.Error())
		return &ExitError{Code: 1, Err: err}
	}
	return nil
}
