// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"turbocache/internal/cacheserver"
	"turbocache/internal/config"
	"turbocache/internal/gha"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// startFailurePrefix is the single failure message prefix for the launch
// phase. Downstream build steps depend on the published variables, so any
// failure here must fail the job.
const startFailurePrefix = "Failed to start Turborepo Remote Cache Server: "

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the remote cache server before the build",
	Long: `Start the Turborepo remote cache server as a detached process and wait
for it to accept connections.

On success the connection info is published to the build environment
(TURBO_API, TURBO_TOKEN, TURBO_TEAM) and the server's PID and port are
persisted for the matching 'turbocache stop' invocation.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().String("storage-provider", "", "storage backend forwarded to the server (e.g. s3)")
	startCmd.Flags().String("storage-path", "", "backend-specific storage location")
	startCmd.Flags().String("team-id", config.DefaultTeamID, "team slug published as TURBO_TEAM")
	startCmd.Flags().String("host", config.DefaultHost, "scheme and host prefixing the published TURBO_API URL")
	startCmd.Flags().String("port", "", "pin the server port instead of auto-allocating")
	startCmd.Flags().String("server-command", config.DefaultServerCommand, "command used to start the cache server")
}

func runStart(cmd *cobra.Command, _ []string) error {
	report := gha.NewCommands(cmd.OutOrStdout())

	in, err := config.Load(cmd.Flags())
	if err != nil {
		return startFailure(report, err)
	}

	launcher := cacheserver.NewLauncher(in)
	launcher.Report = report
	if verbose {
		launcher.Logger.SetLevel(log.DebugLevel)
	}

	if err := launcher.Launch(cmd.Context()); err != nil {
		return startFailure(report, err)
	}

	fmt.Fprintln(os.Stderr, SuccessStyle.Render("Remote cache server is up"))
	return nil
}

// startFailure converts any launch error into the phase's single failure
// signal on the CI error channel.
func startFailure(report *gha.Commands, err error) error {
	report.Error(startFailurePrefix + err.Error())
	return &ExitError{Code: 1, Err: err}
}
